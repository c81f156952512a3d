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

// Package server wires the passkey service into an HTTP server: chi
// routing, rate limiting on the ceremony endpoints, Prometheus metrics,
// and Kubernetes-style health probes.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/passkey/http"
	"github.com/jeremyhahn/go-passkey/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the passkey HTTP server.
type Server struct {
	server  *http.Server
	checker *health.Checker
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	addr    string
	useTLS  bool
}

// Config holds the HTTP server configuration.
type Config struct {
	// Address is the host:port to listen on (default: ":8080")
	Address string

	// Service is the passkey ceremony service (required)
	Service *passkey.Service

	// TLSConfig enables HTTPS when set
	TLSConfig *tls.Config

	// RateLimit limits ceremony requests per client IP (optional)
	RateLimit *ratelimit.Config

	// MetricsPath exposes Prometheus metrics when non-empty
	MetricsPath string

	// Checker provides health probe results (optional)
	Checker *health.Checker

	// Logger is the structured logger (optional, defaults to slog.Default)
	Logger *slog.Logger

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// New creates a new passkey HTTP server.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("service is required")
	}

	// Set defaults
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit)
	}

	server := &Server{
		checker: cfg.Checker,
		limiter: limiter,
		logger:  logger,
		addr:    cfg.Address,
		useTLS:  cfg.TLSConfig != nil,
	}

	router := server.setupRouter(cfg)

	server.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLSConfig,
	}

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter(cfg *Config) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(s.RecoveryMiddleware())
	r.Use(CorrelationMiddleware)
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORSMiddleware)

	// Kubernetes-style health probes
	r.Get("/health/live", s.LivenessHandler)
	r.Get("/health/ready", s.ReadinessHandler)
	r.Get("/health/startup", s.StartupHandler)

	// Prometheus metrics
	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	// Ceremony endpoints, rate limited per client IP
	handler := passkeyhttp.NewHandler(cfg.Service).WithLogger(s.logger)
	r.Route("/api/v1/passkey", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(ratelimit.Middleware(s.limiter))
		}
		passkeyhttp.MountChi(r, handler)
	})

	return r
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	if s.useTLS {
		s.logger.Info("starting HTTPS server", "address", s.addr)

		if err := s.server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
	} else {
		s.logger.Info("starting HTTP server", "address", s.addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.limiter != nil {
		s.limiter.Stop()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Handler returns the configured root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Address returns the address the server listens on.
func (s *Server) Address() string {
	return s.addr
}
