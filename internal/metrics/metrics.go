// Package metrics provides Prometheus instrumentation for the lessonpay API.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonpay",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lessonpay",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// EscrowTransitionsTotal counts escrow state transitions by edge and result.
	EscrowTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonpay",
			Name:      "escrow_transitions_total",
			Help:      "Escrow state machine transitions by transition name and result.",
		},
		[]string{"transition", "result"},
	)

	// WebhookEventsTotal counts inbound gateway webhook events by type and outcome.
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonpay",
			Name:      "webhook_events_total",
			Help:      "Inbound payment gateway webhook events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	// WebhookSignatureFailuresTotal counts webhook deliveries rejected at the trust boundary.
	WebhookSignatureFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonpay",
			Name:      "webhook_signature_failures_total",
			Help:      "Webhook deliveries rejected due to an invalid signature.",
		},
	)

	// ReconcileRecoveredTotal counts escrow_pending requests converged by the reconciler.
	ReconcileRecoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonpay",
			Name:      "reconcile_recovered_total",
			Help:      "Requests advanced from escrow_pending by reconciliation against the gateway.",
		},
	)

	// ReconcileStuckTotal counts requests still divergent after a reconciliation pass.
	ReconcileStuckTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonpay",
			Name:      "reconcile_stuck_total",
			Help:      "Requests left in escrow_pending after a reconciliation pass.",
		},
	)

	// OrphanedSessionsTotal counts gateway sessions created whose ledger update was lost.
	OrphanedSessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonpay",
			Name:      "orphaned_gateway_sessions_total",
			Help:      "Checkout sessions created in the gateway but never recorded in the ledger.",
		},
	)

	// ActiveWebSocketClients tracks connected status stream clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lessonpay",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lessonpay", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lessonpay", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lessonpay", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lessonpay", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EscrowTransitionsTotal,
		WebhookEventsTotal,
		WebhookSignatureFailuresTotal,
		ReconcileRecoveredTotal,
		ReconcileStuckTotal,
		OrphanedSessionsTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func statusBucket(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
