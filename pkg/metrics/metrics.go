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

// Package metrics provides Prometheus instrumentation for passkey ceremony
// operations. It exposes ceremony counters, performance histograms, rejection
// counters, and resource gauges to enable monitoring of relying-party health.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all passkey metrics
	Namespace = "passkey"

	// Label names
	LabelCeremony   = "ceremony"
	LabelPhase      = "phase"
	LabelStatus     = "status"
	LabelReason     = "reason"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Ceremony names
	CeremonyRegistration = "registration"
	CeremonyLogin        = "login"

	// Ceremony phases
	PhaseBegin  = "begin"
	PhaseFinish = "finish"

	// Rejection reasons
	ReasonUserNotFound       = "user_not_found"
	ReasonUnauthenticated    = "unauthenticated"
	ReasonVerificationFailed = "verification_failed"
	ReasonReplay             = "replay"
	ReasonConflict           = "conflict"
	ReasonInternal           = "internal"
)

var (
	// CeremoniesTotal tracks the total number of ceremony operations by
	// ceremony, phase, and status. Use RecordCeremony to increment this
	// counter with the appropriate labels.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_total",
			Help:      "Total number of ceremony operations by ceremony, phase, and status",
		},
		[]string{LabelCeremony, LabelPhase, LabelStatus},
	)

	// CeremonyDuration tracks the duration of ceremony operations in seconds.
	// Buckets are optimized for signature verification latencies.
	CeremonyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ceremony_duration_seconds",
			Help:      "Duration of ceremony operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{LabelCeremony, LabelPhase},
	)

	// RejectionsTotal tracks rejected ceremony attempts by ceremony and
	// reason. Replay rejections in particular deserve alerting, since they
	// indicate a possible cloned authenticator.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rejections_total",
			Help:      "Total number of rejected ceremony attempts by ceremony and reason",
		},
		[]string{LabelCeremony, LabelReason},
	)

	// ActiveConnections tracks the number of in-flight HTTP requests.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// Goroutines tracks the current number of goroutines in the server.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	// Updated periodically by the resource collector.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// MemorySysBytes tracks the total bytes of memory obtained from the OS.
	// Updated periodically by the resource collector.
	MemorySysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_sys_bytes",
			Help:      "Total bytes of memory obtained from the OS",
		},
	)

	// GCPauseTotalSeconds tracks the cumulative time spent in GC stop-the-world pauses.
	// Updated periodically by the resource collector.
	GCPauseTotalSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "gc_pause_total_seconds",
			Help:      "Cumulative time spent in GC stop-the-world pauses",
		},
	)

	// UsersTotal tracks the total number of registered users.
	UsersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "users_total",
			Help:      "Total number of registered users",
		},
	)

	// CredentialsTotal tracks the total number of stored credentials.
	CredentialsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "credentials_total",
			Help:      "Total number of stored credentials",
		},
	)

	// StoreHealthy indicates whether the backing store is healthy (1) or unhealthy (0).
	StoreHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "store_healthy",
			Help:      "Indicates whether the backing store is healthy (1) or unhealthy (0)",
		},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordCeremony records a ceremony operation with its duration and status.
// This is the primary function for tracking ceremony metrics.
//
// Parameters:
//   - ceremony: The ceremony name (use Ceremony* constants)
//   - phase: The ceremony phase (use Phase* constants)
//   - status: The operation status (use Status* constants)
//   - duration: The operation duration in seconds
//
// Example:
//
//	start := time.Now()
//	_, err := svc.FinishLogin(ctx, email, response)
//	duration := time.Since(start).Seconds()
//	if err != nil {
//	    RecordCeremony(CeremonyLogin, PhaseFinish, StatusError, duration)
//	} else {
//	    RecordCeremony(CeremonyLogin, PhaseFinish, StatusSuccess, duration)
//	}
func RecordCeremony(ceremony, phase, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	CeremoniesTotal.WithLabelValues(ceremony, phase, status).Inc()
	CeremonyDuration.WithLabelValues(ceremony, phase).Observe(duration)
}

// RecordRejection records a rejected ceremony attempt.
//
// Parameters:
//   - ceremony: The ceremony during which the rejection occurred (use Ceremony* constants)
//   - reason: The rejection reason (use Reason* constants)
//
// Example:
//
//	if passkey.IsReplay(err) {
//	    RecordRejection(CeremonyLogin, ReasonReplay)
//	}
func RecordRejection(ceremony, reason string) {
	if !enabled.Load() {
		return
	}
	RejectionsTotal.WithLabelValues(ceremony, reason).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration and status.
//
// Parameters:
//   - method: The HTTP method (GET, POST, etc.)
//   - statusCode: The HTTP status code as a string
//   - duration: The request duration in seconds
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// IncrementActiveConnections increments the in-flight request count.
func IncrementActiveConnections() {
	if !enabled.Load() {
		return
	}
	ActiveConnections.Inc()
}

// DecrementActiveConnections decrements the in-flight request count.
func DecrementActiveConnections() {
	if !enabled.Load() {
		return
	}
	ActiveConnections.Dec()
}

// SetUsersTotal sets the total number of registered users.
func SetUsersTotal(count float64) {
	if !enabled.Load() {
		return
	}
	UsersTotal.Set(count)
}

// SetCredentialsTotal sets the total number of stored credentials.
func SetCredentialsTotal(count float64) {
	if !enabled.Load() {
		return
	}
	CredentialsTotal.Set(count)
}

// SetStoreHealth sets the health status of the backing store.
// healthy=true sets the gauge to 1, healthy=false sets it to 0.
func SetStoreHealth(healthy bool) {
	if !enabled.Load() {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	StoreHealthy.Set(value)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
