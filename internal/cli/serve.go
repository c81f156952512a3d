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

package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/internal/server"
	"github.com/jeremyhahn/go-passkey/internal/storage/postgres"
	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/logging"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the passkey HTTP server",
	Long: `Start the relying-party HTTP server with the configured store,
rate limiting, Prometheus metrics and health probes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return RunServer(cfg)
	},
}

// buildStores creates the user and credential stores for the configured
// database driver. The returned *sql.DB is nil for the memory driver.
func buildStores(cfg *config.Config) (passkey.UserStore, passkey.CredentialStore, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(postgres.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := postgres.Ping(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}

		if cfg.Database.Migrate {
			if err := postgres.RunMigrations(cfg.Database.DSN); err != nil {
				db.Close()
				return nil, nil, nil, err
			}
		}

		return postgres.NewUserStore(db), postgres.NewCredentialStore(db), db, nil
	default:
		return passkey.NewMemoryUserStore(), passkey.NewMemoryCredentialStore(), nil, nil
	}
}

// RunServer runs the HTTP server until a shutdown signal arrives. It is
// exported for the standalone server binary.
func RunServer(cfg *config.Config) error {
	// Structured logging per configuration
	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting go-passkey",
		"version", Version,
		"rp_id", cfg.Passkey.RPID,
		"driver", cfg.Database.Driver)

	// Metrics
	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	// Stores
	users, creds, db, err := buildStores(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	// Ceremony service
	service, err := passkey.NewService(passkey.ServiceParams{
		Config:          &cfg.Passkey,
		UserStore:       users,
		CredentialStore: creds,
	})
	if err != nil {
		return fmt.Errorf("failed to create passkey service: %w", err)
	}

	// Health probes: readiness tracks the database when one is configured
	checker := health.NewChecker()
	if db != nil {
		checker.RegisterCheck("postgres", health.StoreCheck("postgres", db.PingContext))
	}

	// TLS
	tlsConfig, err := cfg.TLS.LoadTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to load TLS configuration: %w", err)
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	srv, err := server.New(&server.Config{
		Address:      cfg.Server.Address(),
		Service:      service,
		TLSConfig:    tlsConfig,
		RateLimit:    &cfg.RateLimit,
		MetricsPath:  metricsPath,
		Checker:      checker,
		Logger:       logger,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Resource metrics collector
	collectorCtx, cancelCollector := context.WithCancel(context.Background())
	defer cancelCollector()
	if cfg.Metrics.Enabled {
		metrics.StartResourceCollector(collectorCtx, 15*time.Second)
	}

	// Start the server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	checker.MarkStarted()
	logger.Info("server started", "address", cfg.Server.Address())

	// Wait for shutdown signal or server error
	shutdownCtx := setupSignalHandler(logger)
	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return err
	}

	// Gracefully shutdown
	timeout := cfg.Server.ShutdownTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Stop(stopCtx); err != nil {
		return err
	}

	logger.Info("server stopped successfully")
	return nil
}

// setupSignalHandler sets up signal handling for graceful shutdown
func setupSignalHandler(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	return ctx
}
