package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Deduplication metrics
	DedupRequests     prometheus.Counter
	DedupDeduplicated prometheus.Counter
	DedupRejected     prometheus.Counter
	DedupCancelled    prometheus.Counter
	DedupTimeouts     prometheus.Counter
	DedupErrors       prometheus.Counter
	DedupPending      prometheus.Gauge
	DedupExecution    prometheus.Histogram

	// Degradation metrics
	FallbackTotal    *prometheus.CounterVec
	DependencyHealth *prometheus.GaugeVec
	QueueDepth       *prometheus.GaugeVec

	// Dependency call metrics
	DependencyCalls    *prometheus.CounterVec
	DependencyDuration *prometheus.HistogramVec

	// Probe metrics
	ProbesTotal *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheSize   prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot snapshotState
	latency  *latencyWindow

	mu sync.RWMutex
}

// snapshotState accumulates the raw values behind MetricsSnapshot
type snapshotState struct {
	TotalRequests     int64
	TotalErrors       int64
	ActiveConnections int64
	PendingRequests   int64
	CacheSize         int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		latency:   newLatencyWindow(defaultLatencySamples),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Deduplication metrics
		DedupRequests: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_dedup_requests_total",
				Help: "Total number of coalescer executions requested",
			},
		),
		DedupDeduplicated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_dedup_deduplicated_total",
				Help: "Total number of calls served by an in-flight execution",
			},
		),
		DedupRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_dedup_rejected_total",
				Help: "Total number of calls rejected at pending capacity",
			},
		),
		DedupCancelled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_dedup_cancelled_total",
				Help: "Total number of pending executions cancelled",
			},
		),
		DedupTimeouts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_dedup_timeouts_total",
				Help: "Total number of pending executions timed out",
			},
		),
		DedupErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_dedup_errors_total",
				Help: "Total number of executions settled with an error",
			},
		),
		DedupPending: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_dedup_pending",
				Help: "Number of in-flight coalesced executions",
			},
		),
		DedupExecution: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_dedup_execution_seconds",
				Help:    "Coalesced execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),

		// Degradation metrics
		FallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_fallback_total",
				Help: "Total number of degraded answers by strategy and outcome",
			},
			[]string{"dependency", "strategy", "outcome"},
		),
		DependencyHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "backend_dependency_health",
				Help: "Dependency health level (0 healthy, 1 degraded, 2 unhealthy)",
			},
			[]string{"dependency"},
		),
		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "backend_queue_depth",
				Help: "Number of deferred calls queued per dependency",
			},
			[]string{"dependency"},
		),

		// Dependency call metrics
		DependencyCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_dependency_calls_total",
				Help: "Total number of outbound dependency calls",
			},
			[]string{"dependency", "operation", "status"},
		),
		DependencyDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_dependency_duration_seconds",
				Help:    "Outbound dependency call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"dependency", "operation"},
		),

		// Probe metrics
		ProbesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_probes_total",
				Help: "Total number of health probes by result",
			},
			[]string{"dependency", "kind", "result"},
		),

		// Cache metrics
		CacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_cache_hits_total",
				Help: "Total number of cache hits",
			},
		),
		CacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_cache_misses_total",
				Help: "Total number of cache misses",
			},
		),
		CacheSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_cache_entries",
				Help: "Number of live cache entries",
			},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()

	m.latency.record(duration.Seconds())
}

// RecordDedupRequest counts an execution request entering the coalescer
func (m *Metrics) RecordDedupRequest() {
	m.DedupRequests.Inc()
}

// RecordDeduplicated counts a call absorbed by an in-flight execution
func (m *Metrics) RecordDeduplicated() {
	m.DedupDeduplicated.Inc()
}

// RecordDedupRejected counts a capacity rejection
func (m *Metrics) RecordDedupRejected() {
	m.DedupRejected.Inc()
}

// RecordDedupCancelled counts a cancelled pending execution
func (m *Metrics) RecordDedupCancelled() {
	m.DedupCancelled.Inc()
}

// RecordDedupTimeout counts a timed-out pending execution
func (m *Metrics) RecordDedupTimeout() {
	m.DedupTimeouts.Inc()
}

// RecordDedupError counts an execution settled with an error
func (m *Metrics) RecordDedupError() {
	m.DedupErrors.Inc()
}

// SetPendingRequests sets the number of in-flight coalesced executions
func (m *Metrics) SetPendingRequests(count int) {
	m.DedupPending.Set(float64(count))
	m.mu.Lock()
	m.snapshot.PendingRequests = int64(count)
	m.mu.Unlock()
}

// ObserveExecution records how long a coalesced execution ran
func (m *Metrics) ObserveExecution(duration time.Duration) {
	m.DedupExecution.Observe(duration.Seconds())
}

// RecordFallback counts a degraded answer by strategy and outcome
func (m *Metrics) RecordFallback(dependency, strategy, outcome string) {
	m.FallbackTotal.WithLabelValues(dependency, strategy, outcome).Inc()
}

// SetDependencyHealth sets a dependency's health level gauge
func (m *Metrics) SetDependencyHealth(dependency string, level int) {
	m.DependencyHealth.WithLabelValues(dependency).Set(float64(level))
}

// SetQueueDepth sets the queued call gauge for a dependency
func (m *Metrics) SetQueueDepth(dependency string, depth int) {
	m.QueueDepth.WithLabelValues(dependency).Set(float64(depth))
}

// RecordDependencyCall records an outbound dependency call
func (m *Metrics) RecordDependencyCall(dependency, operation, status string, duration time.Duration) {
	m.DependencyCalls.WithLabelValues(dependency, operation, status).Inc()
	m.DependencyDuration.WithLabelValues(dependency, operation).Observe(duration.Seconds())
}

// RecordProbe counts a health probe result
func (m *Metrics) RecordProbe(dependency, kind string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.ProbesTotal.WithLabelValues(dependency, kind, result).Inc()
}

// RecordCacheHit counts a cache hit
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss counts a cache miss
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// SetCacheSize sets the live cache entry gauge
func (m *Metrics) SetCacheSize(count int) {
	m.CacheSize.Set(float64(count))
	m.mu.Lock()
	m.snapshot.CacheSize = int64(count)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}
