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

// Package health implements Kubernetes-style liveness, readiness, and
// startup probes for the passkey server. Liveness only reports that the
// process runs; readiness runs the registered dependency checks, such as
// the credential store ping.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is operating normally.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is not functioning.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates reduced capacity without outright failure.
	StatusDegraded Status = "degraded"
)

// CheckResult is the outcome of a single health check.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// CheckFunc performs one health check. Checks run on every readiness
// probe, so they must return quickly.
type CheckFunc func(ctx context.Context) CheckResult

// Checker aggregates named health checks and tracks startup state.
type Checker struct {
	mu        sync.RWMutex
	started   bool
	startTime time.Time
	checks    map[string]CheckFunc
}

// NewChecker creates a checker with no registered checks.
func NewChecker() *Checker {
	return &Checker{
		checks:    make(map[string]CheckFunc),
		startTime: time.Now(),
	}
}

// RegisterCheck adds a readiness check, replacing any existing check
// with the same name. Nil checks are ignored.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// MarkStarted flips the startup probe to healthy. Call after all
// initialization completes.
func (c *Checker) MarkStarted() {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

// IsStarted reports whether MarkStarted has been called.
func (c *Checker) IsStarted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Live reports liveness. It never fails: a live process that cannot
// reach its store is a readiness problem, not grounds for a restart.
func (c *Checker) Live(ctx context.Context) CheckResult {
	return CheckResult{
		Name:    "liveness",
		Status:  StatusHealthy,
		Message: "Service is alive",
	}
}

// Ready runs every registered check and returns the results sorted by
// name. With no checks registered it reports a single healthy result.
func (c *Checker) Ready(ctx context.Context) []CheckResult {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make([]CheckFunc, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		checks = append(checks, c.checks[name])
	}
	c.mu.RUnlock()

	if len(names) == 0 {
		return []CheckResult{{
			Name:    "default",
			Status:  StatusHealthy,
			Message: "No readiness checks configured",
		}}
	}

	results := make([]CheckResult, 0, len(names))
	for i, check := range checks {
		start := time.Now()
		result := check(ctx)
		result.Latency = time.Since(start)
		if result.Name == "" {
			result.Name = names[i]
		}
		results = append(results, result)
	}
	return results
}

// Startup reports whether initialization has completed. Probes fail
// until MarkStarted is called.
func (c *Checker) Startup(ctx context.Context) CheckResult {
	c.mu.RLock()
	started := c.started
	startTime := c.startTime
	c.mu.RUnlock()

	if !started {
		return CheckResult{
			Name:    "startup",
			Status:  StatusUnhealthy,
			Message: "Service initialization not complete",
		}
	}

	return CheckResult{
		Name:    "startup",
		Status:  StatusHealthy,
		Message: fmt.Sprintf("Service fully initialized (uptime: %s)", time.Since(startTime).Round(time.Second)),
	}
}

// AggregateStatus folds check results into one status. Any unhealthy
// result wins over degraded, which wins over healthy.
func AggregateStatus(results []CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// StoreCheck adapts a database ping into a CheckFunc, so the readiness
// probe fails while the backing store is unreachable.
func StoreCheck(name string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Status: StatusHealthy, Message: "store reachable"}
		if err := ping(ctx); err != nil {
			result.Status = StatusUnhealthy
			result.Message = "store unreachable"
			result.Error = err.Error()
		}
		return result
	}
}
