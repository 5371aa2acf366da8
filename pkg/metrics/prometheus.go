// Package metrics provides Prometheus metrics for the warden scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Verification
	reportsVerified      prometheus.Counter
	verificationFailures *prometheus.CounterVec
	replaysRejected      prometheus.Counter

	// Scoring
	scoresPublished prometheus.Histogram
	componentScores *prometheus.HistogramVec
	penaltiesByKind *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	serversScored   prometheus.Gauge

	// Collector client
	collectorRequestDuration *prometheus.HistogramVec
	collectorRequestErrors   *prometheus.CounterVec

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueDrops       prometheus.Counter

	// Workers
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Registry store
	registryRecords          prometheus.Gauge
	registrySnapshotDuration prometheus.Histogram
	registrySnapshots        prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors by component
	errorsByComponent *prometheus.CounterVec
}

// Custom registry so the default Go collectors stay out of our scrape output.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton metrics registry

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "warden",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // registers every metric in one place
	auto := promauto.With(m.registry)

	m.reportsVerified = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reports_verified_total",
		Help:      "Reports that passed integrity verification.",
	})
	m.verificationFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "verification_failures_total",
		Help:      "Verification failures by kind.",
	}, []string{"kind"})
	m.replaysRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replays_rejected_total",
		Help:      "Reports rejected by replay protection.",
	})

	m.scoresPublished = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_published",
		Help:      "Distribution of smoothed scores published per cycle.",
		Buckets:   prometheus.LinearBuckets(0, 100, 11),
	})
	m.componentScores = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "component_scores",
		Help:      "Distribution of component sub-scores in [0,1].",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"component"})
	m.penaltiesByKind = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "penalties_total",
		Help:      "Scoring penalties applied, by kind.",
	}, []string{"kind"})
	m.cycleDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of a full scoring cycle.",
		Buckets:   m.histogramBuckets,
	})
	m.serversScored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "servers_scored",
		Help:      "Servers evaluated in the last cycle.",
	})

	m.collectorRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "request_duration_seconds",
		Help:      "Collector API request latency by endpoint.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})
	m.collectorRequestErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "request_errors_total",
		Help:      "Collector API request errors by endpoint.",
	}, []string{"endpoint"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "size",
		Help:      "Jobs currently queued.",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "capacity",
		Help:      "Configured queue capacity.",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "utilization",
		Help:      "Queue fill ratio in [0,1].",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueues_total",
		Help:      "Jobs enqueued.",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "dequeues_total",
		Help:      "Jobs dequeued by workers.",
	})
	m.queueDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "drops_total",
		Help:      "Jobs dropped because the queue was full.",
	})

	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "active",
		Help:      "Workers currently running.",
	})
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "processing_latency_ms",
		Help:      "Per-job processing latency in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "errors_total",
		Help:      "Job processing errors.",
	})

	m.registryRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "registry",
		Name:      "records",
		Help:      "Servers tracked in the score registry.",
	})
	m.registrySnapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "registry",
		Name:      "snapshot_duration_ms",
		Help:      "Registry snapshot rebuild duration in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	m.registrySnapshots = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "registry",
		Name:      "snapshots_total",
		Help:      "Registry snapshots published.",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by endpoint and method.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type.",
	}, []string{"component", "type"})
}

// Package-level helpers recording on the global manager.

// RecordReportVerified counts a report that passed all integrity checks.
func RecordReportVerified() {
	globalManager.reportsVerified.Inc()
}

// RecordVerificationFailure counts a verification failure by kind.
func RecordVerificationFailure(kind string) {
	globalManager.verificationFailures.WithLabelValues(kind).Inc()
}

// RecordReplayRejected counts a report rejected by replay protection.
func RecordReplayRejected() {
	globalManager.replaysRejected.Inc()
}

// RecordScorePublished observes a published smoothed score.
func RecordScorePublished(score float64) {
	globalManager.scoresPublished.Observe(score)
}

// RecordComponentScore observes a component sub-score.
func RecordComponentScore(component string, value float64) {
	globalManager.componentScores.WithLabelValues(component).Observe(value)
}

// RecordPenalty counts an applied scoring penalty by kind.
func RecordPenalty(kind string) {
	globalManager.penaltiesByKind.WithLabelValues(kind).Inc()
}

// RecordCycleDuration observes the duration of a scoring cycle.
func RecordCycleDuration(seconds float64) {
	globalManager.cycleDuration.Observe(seconds)
}

// UpdateServersScored sets the number of servers evaluated in the last cycle.
func UpdateServersScored(n int) {
	globalManager.serversScored.Set(float64(n))
}

// RecordCollectorRequest observes a collector API request latency.
func RecordCollectorRequest(endpoint string, seconds float64) {
	globalManager.collectorRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

// RecordCollectorError counts a collector API request error.
func RecordCollectorError(endpoint string) {
	globalManager.collectorRequestErrors.WithLabelValues(endpoint).Inc()
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(ratio float64) {
	globalManager.queueUtilization.Set(ratio)
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueDrop counts a job dropped due to a full queue.
func RecordQueueDrop() {
	globalManager.queueDrops.Inc()
}

// UpdateWorkerActive sets the number of running workers.
func UpdateWorkerActive(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerProcessingLatency observes per-job processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateRegistryRecords sets the number of servers tracked by the registry.
func UpdateRegistryRecords(count int) {
	globalManager.registryRecords.Set(float64(count))
}

// RecordRegistrySnapshotDuration observes a snapshot rebuild duration.
func RecordRegistrySnapshotDuration(ms float64) {
	globalManager.registrySnapshotDuration.Observe(ms)
}

// RecordRegistrySnapshot counts a published registry snapshot.
func RecordRegistrySnapshot() {
	globalManager.registrySnapshots.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request latency.
func RecordHTTPRequestDuration(endpoint, method string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(seconds)
}

// RecordErrorByComponent counts an error by component and type.
func RecordErrorByComponent(component, errType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errType).Inc()
}

// GetRegistry returns the custom Prometheus registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
