// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/logging"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/jeremyhahn/go-passkey/pkg/ratelimit"
	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   logging.Config   `yaml:"logging"`
	TLS       TLSConfig        `yaml:"tls"`
	RateLimit ratelimit.Config `yaml:"ratelimit"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Database  DatabaseConfig   `yaml:"database"`
	Passkey   passkey.Config   `yaml:"passkey"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns the host:port the server binds to.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TLSConfig controls the HTTPS listener. WebAuthn requires a secure
// context, so production deployments terminate TLS either here or at a
// proxy in front.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// CAFile holds the CA bundle used to verify client certificates
	// when ClientAuth is set.
	CAFile string `yaml:"ca_file"`

	// ClientAuth selects client certificate verification:
	// none, request, require, verify, require_and_verify
	ClientAuth string `yaml:"client_auth"`

	// MinVersion is TLS1.2 or TLS1.3 (default TLS1.2)
	MinVersion string `yaml:"min_version"`
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DatabaseConfig controls the credential and user store
type DatabaseConfig struct {
	// Driver selects the store implementation: memory or postgres
	Driver string `yaml:"driver"`

	// DSN is the Postgres connection string. Unused for the memory driver.
	DSN string `yaml:"dsn"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// Migrate runs pending schema migrations at startup.
	Migrate bool `yaml:"migrate"`
}

// Default returns a configuration with sensible defaults for local
// development: memory store, no TLS, metrics enabled.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
		RateLimit: ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Database: DatabaseConfig{
			Driver: "memory",
		},
		Passkey: passkey.Config{
			RPID:      "localhost",
			RPName:    "go-passkey",
			RPOrigins: []string{"http://localhost:8080"},
		},
	}
}

// Load reads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	// Server settings
	if host := os.Getenv("PASSKEY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portEnv := os.Getenv("PASSKEY_PORT"); portEnv != "" {
		port, err := strconv.Atoi(portEnv)
		if err != nil {
			log.Printf("Warning: invalid PASSKEY_PORT value %q, using default %d: %v",
				portEnv, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid PASSKEY_PORT value %q (out of range 1-65535), using default %d",
				portEnv, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	// Logging
	if level := os.Getenv("PASSKEY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("PASSKEY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Database
	if dsn := os.Getenv("PASSKEY_DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if driver := os.Getenv("PASSKEY_DATABASE_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}

	// Rate limiting
	if rpm := os.Getenv("PASSKEY_RATE_LIMIT_RPM"); rpm != "" {
		n, err := strconv.Atoi(rpm)
		if err != nil || n < 1 {
			log.Printf("Warning: invalid PASSKEY_RATE_LIMIT_RPM value %q, using default %d",
				rpm, cfg.RateLimit.RequestsPerMinute)
		} else {
			cfg.RateLimit.RequestsPerMinute = n
		}
	}
	if burst := os.Getenv("PASSKEY_RATE_LIMIT_BURST"); burst != "" {
		n, err := strconv.Atoi(burst)
		if err != nil || n < 1 {
			log.Printf("Warning: invalid PASSKEY_RATE_LIMIT_BURST value %q, using default %d",
				burst, cfg.RateLimit.Burst)
		} else {
			cfg.RateLimit.Burst = n
		}
	}

	// Relying party identity
	if rpID := os.Getenv("PASSKEY_RP_ID"); rpID != "" {
		cfg.Passkey.RPID = rpID
	}
	if rpName := os.Getenv("PASSKEY_RP_NAME"); rpName != "" {
		cfg.Passkey.RPName = rpName
	}
	if origins := os.Getenv("PASSKEY_RP_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		cfg.Passkey.RPOrigins = cfg.Passkey.RPOrigins[:0]
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				cfg.Passkey.RPOrigins = append(cfg.Passkey.RPOrigins, trimmed)
			}
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	// Validate TLS settings
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}

	// Validate database settings
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be memory or postgres)", c.Database.Driver)
	}

	// Validate relying party settings
	c.Passkey.SetDefaults()
	if err := c.Passkey.Validate(); err != nil {
		return fmt.Errorf("invalid passkey configuration: %w", err)
	}

	return nil
}
