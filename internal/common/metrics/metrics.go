package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	// HTTPRequestDuration tracks request latency by method, path, and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestTimeout counts requests that hit the timeout threshold by path.
	HTTPRequestTimeout = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_timeout_total",
			Help: "Total number of HTTP request timeouts",
		},
		[]string{"path"},
	)
)

// Database metrics
var (
	// DBTransactionDuration tracks transaction duration by operation label.
	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_transaction_duration_seconds",
			Help:    "Duration of database transactions in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	// DBOptimisticLockConflicts counts optimistic lock conflicts by repository.
	DBOptimisticLockConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_optimistic_lock_conflicts_total",
			Help: "Total number of optimistic lock conflicts",
		},
		[]string{"repository"},
	)

	// DBPoolConnectionsInUse gauges the number of in-use database connections.
	DBPoolConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	// DBPoolConnectionsIdle gauges the number of idle database connections.
	DBPoolConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// Outbox metrics
var (
	// OutboxPendingEvents gauges the number of unpublished outbox events.
	OutboxPendingEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_events",
			Help: "Number of unpublished events in outbox",
		},
	)

	// OutboxOldestUnpublishedAge gauges the age in seconds of the oldest unpublished event.
	OutboxOldestUnpublishedAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_oldest_unpublished_age_seconds",
			Help: "Age of the oldest unpublished outbox event in seconds",
		},
	)
)

// Wizard metrics
var (
	// RecordsEnsured counts ensureRecordExists outcomes: created, adopted (natural key hit)
	// or resumed (draft already carried a record id).
	RecordsEnsured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kir_records_ensured_total",
			Help: "Total number of record resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// RecordCreateConflicts counts creates that lost a natural key race and adopted the winner.
	RecordCreateConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kir_record_create_conflicts_total",
			Help: "Total number of record creates rejected by the uniqueness index",
		},
	)

	// DraftWriteFailures counts draft snapshot writes that were dropped.
	DraftWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kir_draft_write_failures_total",
			Help: "Total number of failed draft snapshot writes",
		},
		[]string{"reason"},
	)

	// AutosaveFlushes counts debounced autosave flushes by result.
	AutosaveFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kir_autosave_flushes_total",
			Help: "Total number of autosave flushes",
		},
		[]string{"result"},
	)

	// WizardSubmissions counts submit attempts by result.
	WizardSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kir_wizard_submissions_total",
			Help: "Total number of wizard submissions",
		},
		[]string{"result"},
	)

	// OutboxPublished counts events handed to the broker.
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kir_outbox_published_total",
			Help: "Total number of outbox events published",
		},
		[]string{"event_type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns an HTTP middleware that records request metrics.
// Side effects: records Prometheus metrics and reads the current time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip metrics endpoint itself
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := normalizePath(r.URL.Path)

		HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()

		// Check for timeout (context canceled with 5s timeout typically means timeout)
		if r.Context().Err() != nil && duration >= 4.9 {
			HTTPRequestTimeout.WithLabelValues(path).Inc()
		}
	})
}

// normalizePath normalizes URL paths to avoid cardinality explosion.
// Record ids are replaced with a placeholder.
func normalizePath(path string) string {
	const records = "/records/"
	if strings.HasPrefix(path, records) && len(path) > len(records) {
		return "/records/{id}"
	}
	return path
}

// RecordOptimisticLockConflict increments the optimistic lock conflict counter.
// Side effects: records a Prometheus metric.
func RecordOptimisticLockConflict(repository string) {
	DBOptimisticLockConflicts.WithLabelValues(repository).Inc()
}

// RecordTransactionDuration records a transaction duration.
// Side effects: records a Prometheus metric.
func RecordTransactionDuration(operation string, duration time.Duration) {
	DBTransactionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEnsured increments the record resolution counter.
func RecordEnsured(outcome string) {
	RecordsEnsured.WithLabelValues(outcome).Inc()
}

// RecordCreateConflict increments the natural key race counter.
func RecordCreateConflict() {
	RecordCreateConflicts.Inc()
}

// RecordDraftWriteFailure increments the dropped draft write counter.
func RecordDraftWriteFailure(reason string) {
	DraftWriteFailures.WithLabelValues(reason).Inc()
}

// RecordAutosaveFlush increments the autosave flush counter.
func RecordAutosaveFlush(result string) {
	AutosaveFlushes.WithLabelValues(result).Inc()
}

// RecordSubmission increments the submission counter.
func RecordSubmission(result string) {
	WizardSubmissions.WithLabelValues(result).Inc()
}

// RecordOutboxPublished increments the published event counter.
func RecordOutboxPublished(eventType string) {
	OutboxPublished.WithLabelValues(eventType).Inc()
}

// RecordOutboxBacklog sets the outbox gauges from the relay's last poll.
func RecordOutboxBacklog(pending int, oldestAge time.Duration) {
	OutboxPendingEvents.Set(float64(pending))
	OutboxOldestUnpublishedAge.Set(oldestAge.Seconds())
}

// RecordPoolStats copies pgxpool statistics into the pool gauges.
func RecordPoolStats(inUse, idle int32) {
	DBPoolConnectionsInUse.Set(float64(inUse))
	DBPoolConnectionsIdle.Set(float64(idle))
}
