// Package metrics provides Prometheus metrics for the pacer ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pacer service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Admission
	registrations     *prometheus.CounterVec
	unregistrations   *prometheus.CounterVec
	admissionLockWait prometheus.Histogram

	// Performance analysis
	analyses          *prometheus.CounterVec
	analysisAnomalies *prometheus.CounterVec

	// Ranking and aggregation
	leaderboardQueries     prometheus.Counter
	leaderboardLatency     prometheus.Histogram
	leaderboardSize        prometheus.Histogram
	topPerformersLatency   prometheus.Histogram
	rankingErrors          prometheus.Counter
	sessionsLogged         prometheus.Counter
	reviewsSubmitted       *prometheus.CounterVec
	trackedEvents          prometheus.Gauge
	trackedSessions        prometheus.Gauge
	repositoryQueryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pacer",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.registrations = auto.NewCounterVec(
		m.counterOpts("registrations_total", "Registration attempts by outcome"),
		[]string{"path", "outcome"},
	)
	m.unregistrations = auto.NewCounterVec(
		m.counterOpts("unregistrations_total", "Unregistration attempts by outcome"),
		[]string{"outcome"},
	)
	m.admissionLockWait = auto.NewHistogram(m.histogramOpts(
		"admission_lock_wait_milliseconds",
		"Time spent waiting for the per-event admission scope",
		[]float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250},
	))

	m.analyses = auto.NewCounterVec(
		m.counterOpts("session_analyses_total", "Session performance reports by rating"),
		[]string{"rating"},
	)
	m.analysisAnomalies = auto.NewCounterVec(
		m.counterOpts("session_anomalies_total", "Data-integrity anomalies detected while analysing sessions"),
		[]string{"anomaly"},
	)

	m.leaderboardQueries = auto.NewCounter(m.counterOpts("leaderboard_queries_total", "Leaderboard computations"))
	m.leaderboardLatency = auto.NewHistogram(m.histogramOpts(
		"leaderboard_latency_milliseconds", "Leaderboard computation latency in milliseconds", m.histogramBuckets))
	m.leaderboardSize = auto.NewHistogram(m.histogramOpts(
		"leaderboard_entries", "Number of entries per computed leaderboard",
		[]float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000}))
	m.topPerformersLatency = auto.NewHistogram(m.histogramOpts(
		"top_performers_latency_milliseconds", "Cross-event aggregation latency in milliseconds", m.histogramBuckets))
	m.rankingErrors = auto.NewCounter(m.counterOpts("ranking_errors_total", "Failed leaderboard or aggregation queries"))
	m.sessionsLogged = auto.NewCounter(m.counterOpts("sessions_logged_total", "Jogging sessions recorded"))
	m.reviewsSubmitted = auto.NewCounterVec(
		m.counterOpts("reviews_submitted_total", "Reviews created or updated by target kind"),
		[]string{"target"},
	)
	m.trackedEvents = auto.NewGauge(m.gaugeOpts("tracked_events", "Events known to the store"))
	m.trackedSessions = auto.NewGauge(m.gaugeOpts("tracked_sessions", "Sessions known to the store"))
	m.repositoryQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_query_latency_milliseconds", "Repository operation latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordRegistration counts one admission decision. path is "jogger" or
// "organizer"; outcome is "accepted" or a rejection reason.
func RecordRegistration(path, outcome string) {
	globalManager.registrations.WithLabelValues(path, outcome).Inc()
}

// RecordUnregistration counts one unregistration attempt.
func RecordUnregistration(outcome string) {
	globalManager.unregistrations.WithLabelValues(outcome).Inc()
}

// RecordAdmissionLockWait records how long a caller waited for the per-event scope.
func RecordAdmissionLockWait(latencyMs float64) {
	globalManager.admissionLockWait.Observe(latencyMs)
}

// RecordAnalysis counts a performance report by rating label.
func RecordAnalysis(rating string) {
	globalManager.analyses.WithLabelValues(rating).Inc()
}

// RecordAnomaly counts a data-integrity anomaly.
func RecordAnomaly(anomaly string) {
	globalManager.analysisAnomalies.WithLabelValues(anomaly).Inc()
}

// RecordLeaderboardQuery records one leaderboard computation.
func RecordLeaderboardQuery(latencyMs float64, entries int) {
	globalManager.leaderboardQueries.Inc()
	globalManager.leaderboardLatency.Observe(latencyMs)
	globalManager.leaderboardSize.Observe(float64(entries))
}

// RecordTopPerformersLatency records one cross-event aggregation.
func RecordTopPerformersLatency(latencyMs float64) {
	globalManager.topPerformersLatency.Observe(latencyMs)
}

// RecordRankingError increments the ranking error counter.
func RecordRankingError() {
	globalManager.rankingErrors.Inc()
}

// RecordSessionLogged increments the sessions counter.
func RecordSessionLogged() {
	globalManager.sessionsLogged.Inc()
}

// RecordReviewSubmitted counts a review write for "event" or "route".
func RecordReviewSubmitted(target string) {
	globalManager.reviewsSubmitted.WithLabelValues(target).Inc()
}

// UpdateTrackedEvents sets the number of events in the store.
func UpdateTrackedEvents(count int) {
	globalManager.trackedEvents.Set(float64(count))
}

// UpdateTrackedSessions sets the number of sessions in the store.
func UpdateTrackedSessions(count int) {
	globalManager.trackedSessions.Set(float64(count))
}

// RecordRepositoryQueryLatency records repository operation latency.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
