package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrstage_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrstage_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrstage_auth_attempts_total",
		Help: "Admin authentication attempts by subsystem and result",
	}, []string{"subsystem", "result"})

	activeAdminSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hrstage_active_admin_sessions",
		Help: "Number of sessions currently holding admin access, per subsystem",
	}, []string{"subsystem"})

	configOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrstage_config_operations_total",
		Help: "Configuration store operations by subsystem, operation and result",
	}, []string{"subsystem", "operation", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthAttempt records an authentication attempt with its result
// (success, failure or error).
func ObserveAuthAttempt(subsystem, result string) {
	authAttempts.WithLabelValues(subsystem, result).Inc()
}

// IncrementActiveSessions increments the active admin session gauge.
func IncrementActiveSessions(subsystem string) {
	activeAdminSessions.WithLabelValues(subsystem).Inc()
}

// DecrementActiveSessions decrements the active admin session gauge.
func DecrementActiveSessions(subsystem string) {
	activeAdminSessions.WithLabelValues(subsystem).Dec()
}

// ObserveConfigOperation records a config store operation (save, load,
// delete_all, backup, restore) with its result.
func ObserveConfigOperation(subsystem, operation, result string) {
	configOperations.WithLabelValues(subsystem, operation, result).Inc()
}
