// Package metrics provides Prometheus metrics for the call QA scoring service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the call QA service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring metrics
	callsScored       *prometheus.CounterVec
	callsDuplicate    prometheus.Counter
	scoringLatency    prometheus.Histogram
	keywordHits       *prometheus.CounterVec
	semanticDegraded  *prometheus.CounterVec
	similarityCalls   *prometheus.CounterVec
	breakerState      prometheus.Gauge
	scoringErrors     prometheus.Counter
	overallScore      *prometheus.HistogramVec
	reportsStored     prometheus.Gauge
	storeWriteLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    prometheus.Counter

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	errorsByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager and the registry it is registered on. Both are swapped together
// by Configure.
var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // intentional global for singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // intentional global for metrics registry
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh registry, so
// renamed metrics never collide with the previous set. It is meant to run once at startup,
// before metrics are scraped; values recorded earlier are dropped. A registry passed via
// WithPrometheusRegistry is ignored.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

func current() *Manager {
	return globalManager.Load()
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "callqa",
		subsystem:        "scoring",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.callsScored = m.counterVec("calls_scored_total",
		"Total number of calls scored, by overall rule band", "band")
	m.callsDuplicate = m.counter("calls_duplicate_total",
		"Total number of duplicate call submissions rejected by dedupe")
	m.scoringLatency = m.histogram("latency_milliseconds",
		"Histogram of end-to-end scoring latency per call in milliseconds", m.histogramBuckets)
	m.keywordHits = m.counterVec("keyword_hits_total",
		"Keyword hits by tier and match type", "tier", "match_type")
	m.semanticDegraded = m.counterVec("semantic_degraded_total",
		"Semantic category scores that fell back to the rule-based score", "category")
	m.similarityCalls = m.counterVec("similarity_calls_total",
		"Similarity capability invocations by provider and status", "provider", "status")
	m.breakerState = m.gauge("similarity_breaker_state",
		"Similarity circuit breaker state (0 closed, 1 open, 2 half-open)")
	m.scoringErrors = m.counter("errors_total",
		"Total number of calls whose scoring returned an error")
	m.overallScore = m.histogramVec("overall_score",
		"Distribution of overall scores by method", []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, "method")
	m.reportsStored = m.gauge("reports_stored",
		"Number of reports currently held by the report store")
	m.storeWriteLatency = m.histogram("store_write_latency_milliseconds",
		"Report store write latency in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Current size of the call queue (backlog indicator)")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of calls enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of calls dequeued")
	m.queueRejected = m.counter("queue_enqueue_errors_total", "Total number of enqueue failures (backpressure)")

	m.workerCount = m.gauge("worker_count", "Configured number of scoring workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently scoring a call")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordCallScored increments the scored calls counter for the given band.
func RecordCallScored(band string) {
	current().callsScored.WithLabelValues(band).Inc()
}

// RecordCallDuplicate increments the duplicate submissions counter.
func RecordCallDuplicate() {
	current().callsDuplicate.Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	current().scoringLatency.Observe(latencyMs)
}

// RecordKeywordHit counts a keyword hit.
func RecordKeywordHit(tier, matchType string) {
	current().keywordHits.WithLabelValues(tier, matchType).Inc()
}

// RecordSemanticDegraded counts a category that fell back to its rule-based score.
func RecordSemanticDegraded(category string) {
	current().semanticDegraded.WithLabelValues(category).Inc()
}

// RecordSimilarityCall counts a similarity capability call; status is "ok" or "error".
func RecordSimilarityCall(provider, status string) {
	current().similarityCalls.WithLabelValues(provider, status).Inc()
}

// UpdateBreakerState sets the similarity breaker state gauge.
func UpdateBreakerState(state int) {
	current().breakerState.Set(float64(state))
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	current().scoringErrors.Inc()
}

// RecordOverallScore observes an overall score for a method.
func RecordOverallScore(method string, score float64) {
	current().overallScore.WithLabelValues(method).Observe(score)
}

// UpdateReportsStored sets the number of stored reports.
func UpdateReportsStored(count int) {
	current().reportsStored.Set(float64(count))
}

// RecordStoreWriteLatency records report store write latency.
func RecordStoreWriteLatency(latencyMs float64) {
	current().storeWriteLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	current().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	current().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	current().queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	current().queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	current().queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	current().queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	current().queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	current().queueRejected.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	current().workerCount.Set(float64(count))
}

// AddWorkerActive adjusts the number of busy workers by delta.
func AddWorkerActive(delta int) {
	current().workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	current().workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	current().workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	current().errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	current().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	current().systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
