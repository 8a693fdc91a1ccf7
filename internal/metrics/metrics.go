// Package metrics provides Prometheus metrics for the document portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docportal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Record snapshot metrics
	snapshotDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docportal_snapshot_documents",
			Help: "Number of documents in the current record snapshot",
		},
	)

	snapshotEmployees = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docportal_snapshot_employees",
			Help: "Number of employees in the current record snapshot",
		},
	)

	snapshotRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docportal_snapshot_refresh_duration_seconds",
			Help:    "Time to fetch both record collections",
			Buckets: prometheus.DefBuckets,
		},
	)

	snapshotRefreshErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docportal_snapshot_refresh_errors_total",
			Help: "Total failed snapshot refreshes",
		},
	)

	// Navigator metrics
	navigatorSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docportal_navigator_sessions_active",
			Help: "Number of open navigator sessions",
		},
	)

	navigatorEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_navigator_events_total",
			Help: "Total navigator events applied",
		},
		[]string{"type"},
	)

	navigatorResolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docportal_navigator_resolve_duration_seconds",
			Help:    "Time to resolve the content of a navigator position",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"kind"},
	)

	reconcileRewritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docportal_reconcile_rewrites_total",
			Help: "Total paths rewritten to match pinned year/month filters",
		},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)

	permissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_permission_checks_total",
			Help: "Total permission checks",
		},
		[]string{"action", "result"},
	)

	// PIN metrics
	pinVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_pin_verifications_total",
			Help: "Total document PIN verifications",
		},
		[]string{"result"},
	)

	pinLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docportal_pin_lockouts_total",
			Help: "Total document PIN lockouts",
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docportal_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	dbConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docportal_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	// Revalidation fan-out
	eventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docportal_event_subscribers",
			Help: "Number of active event subscribers",
		},
	)

	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_events_published_total",
			Help: "Total events published",
		},
		[]string{"type"},
	)

	// Quota metrics
	rateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docportal_rate_limit_hits_total",
			Help: "Total rate limit rejections (429s)",
		},
	)

	// S3 metrics
	s3OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docportal_s3_operation_duration_seconds",
			Help:    "S3 operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	s3OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docportal_s3_operations_total",
			Help: "Total S3 operations",
		},
		[]string{"operation", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSnapshotRefresh records a successful snapshot refresh.
func RecordSnapshotRefresh(duration time.Duration, employees, documents int) {
	snapshotRefreshDuration.Observe(duration.Seconds())
	snapshotEmployees.Set(float64(employees))
	snapshotDocuments.Set(float64(documents))
}

// RecordSnapshotRefreshError records a failed snapshot refresh.
func RecordSnapshotRefreshError() {
	snapshotRefreshErrors.Inc()
}

// SetNavigatorSessionsActive sets the number of open navigator sessions.
func SetNavigatorSessionsActive(count int) {
	navigatorSessionsActive.Set(float64(count))
}

// RecordNavigatorEvent records an applied navigator event.
func RecordNavigatorEvent(eventType string) {
	navigatorEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordResolve records how long a resolve took, by content kind.
func RecordResolve(kind string, duration time.Duration) {
	navigatorResolveDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordReconcileRewrite records a path rewrite by the filter reconciler.
func RecordReconcileRewrite() {
	reconcileRewritesTotal.Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordPermissionCheck records a permission check result.
func RecordPermissionCheck(action string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	permissionChecksTotal.WithLabelValues(action, result).Inc()
}

// RecordPinVerification records a PIN verification outcome:
// "success", "incorrect", "locked" or "not_set".
func RecordPinVerification(result string) {
	pinVerificationsTotal.WithLabelValues(result).Inc()
}

// RecordPinLockout records an account entering PIN lockout.
func RecordPinLockout() {
	pinLockoutsTotal.Inc()
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// SetDBConnectionsOpen sets the number of open database connections.
func SetDBConnectionsOpen(count int) {
	dbConnectionsOpen.Set(float64(count))
}

// SetEventSubscribers sets the number of event subscribers.
func SetEventSubscribers(count int) {
	eventSubscribers.Set(float64(count))
}

// RecordEventPublished records a published event.
func RecordEventPublished(eventType string) {
	eventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// RecordRateLimitHit records a rate limit rejection.
func RecordRateLimitHit() {
	rateLimitHitsTotal.Inc()
}

// RecordS3Operation records an S3 operation.
func RecordS3Operation(operation string, duration time.Duration, success bool) {
	s3OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	s3OperationsTotal.WithLabelValues(operation, status).Inc()
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

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
// pathLabel maps a request to a bounded label; nil uses the URL path.
func Middleware(pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			label := r.URL.Path
			if pathLabel != nil {
				label = pathLabel(r)
			}
			RecordHTTPRequest(r.Method, label, rw.statusCode, time.Since(start))
		})
	}
}
