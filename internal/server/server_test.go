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

package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/jeremyhahn/go-passkey/pkg/ratelimit"
)

func testService(t *testing.T) *passkey.Service {
	t.Helper()
	svc, err := passkey.NewService(passkey.ServiceParams{
		Config: &passkey.Config{
			RPID:      "localhost",
			RPName:    "test",
			RPOrigins: []string{"http://localhost:8080"},
		},
		UserStore:       passkey.NewMemoryUserStore(),
		CredentialStore: passkey.NewMemoryCredentialStore(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error")
	}
	if _, err := New(&Config{}); err == nil {
		t.Error("New without service expected error")
	}
}

func TestHealthEndpointsWithoutChecker(t *testing.T) {
	srv, err := New(&Config{Service: testService(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, path := range []string{"/health/live", "/health/ready", "/health/startup"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "healthy") {
			t.Errorf("GET %s body = %s, want healthy status", path, rec.Body.String())
		}
	}
}

func TestReadinessReflectsChecker(t *testing.T) {
	checker := health.NewChecker()
	checker.MarkStarted()
	checker.RegisterCheck("store", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{
			Name:   "store",
			Status: health.StatusUnhealthy,
			Error:  errors.New("connection refused").Error(),
		}
	})

	srv, err := New(&Config{Service: testService(t), Checker: checker})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness status = %d, want 503", rec.Code)
	}

	// Liveness stays healthy while a dependency is down
	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, err := New(&Config{Service: testService(t), MetricsPath: "/metrics"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output should contain runtime metrics")
	}
}

func TestCeremonyRoutesMounted(t *testing.T) {
	srv, err := New(&Config{Service: testService(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/passkey/register",
		strings.NewReader(`{"email":"alice@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("begin registration status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "publicKey") {
		t.Errorf("body should contain creation options, got %s", rec.Body.String())
	}
}

func TestRateLimitEnforced(t *testing.T) {
	srv, err := New(&Config{
		Service: testService(t),
		RateLimit: &ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: 1,
			Burst:             1,
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer srv.Stop(context.Background())

	body := `{"email":"bob@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/passkey/register", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:50000"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/passkey/register", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:50001"
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}

	// A different client is unaffected
	req = httptest.NewRequest(http.MethodPost, "/api/v1/passkey/register", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.2:50000"
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}

	// Health probes bypass the limiter
	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.RemoteAddr = "10.0.0.1:50002"
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, err := New(&Config{Service: testService(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/passkey/login", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("preflight response should carry CORS headers")
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	srv, err := New(&Config{Service: testService(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Correlation-ID", "test-correlation-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != "test-correlation-123" {
		t.Errorf("X-Correlation-ID = %q, want test-correlation-123", got)
	}

	// Generated when absent
	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID should be generated when not supplied")
	}
}

func TestRequestLogSanitizesPath(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	srv, err := New(&Config{Service: testService(t), Logger: logger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.URL.Path = "/health/live\nfake log entry"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "/health/livefake log entry") {
		t.Errorf("access log should contain the sanitized path, got %q", out)
	}
	if strings.Contains(out, "live\nfake") {
		t.Errorf("access log should not contain raw control characters, got %q", out)
	}
}

func TestStop(t *testing.T) {
	srv, err := New(&Config{Service: testService(t)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
