// Package monitoring exposes the Prometheus counters/histograms/gauges
// for the ingestion, collection, and analysis paths.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtrail_ingest_batches_total",
			Help: "Total number of log batches accepted by the collector",
		},
		[]string{"status"},
	)

	IngestRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtrail_ingest_records_total",
			Help: "Total number of individual log records ingested",
		},
		[]string{"service", "level"},
	)

	IngestBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logtrail_ingest_batch_duration_seconds",
			Help:    "Time spent bulk-inserting a log batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	ClientQueueDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtrail_client_queue_drops_total",
			Help: "Total number of log records dropped because the client queue was full",
		},
		[]string{"service"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtrail_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logtrail_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	WorkflowStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logtrail_workflow_stage_duration_seconds",
			Help:    "Duration of each analysis workflow stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	WorkflowOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtrail_workflow_outcomes_total",
			Help: "Total number of analysis workflow runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtrail_llm_calls_total",
			Help: "Total number of LLM invocations by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logtrail_llm_call_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logtrail_cache_hits_total",
			Help: "Total number of result cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logtrail_cache_misses_total",
			Help: "Total number of result cache misses",
		},
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logtrail_cache_size",
			Help: "Current number of entries in the result cache",
		},
	)

	AnomalyAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtrail_anomaly_alerts_total",
			Help: "Total number of anomaly alerts raised by type and severity",
		},
		[]string{"type", "severity"},
	)

	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logtrail_websocket_connections_active",
			Help: "Current number of active streaming WebSocket connections",
		},
	)
)

// Metrics wraps the package-level collectors with an enabled flag so a
// single config toggle can disable all recording without touching the
// rest of the codebase.
type Metrics struct {
	enabled bool
}

func New(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

func (m *Metrics) isEnabled() bool {
	return m.enabled
}

func (m *Metrics) RecordIngestBatch(status string, records int, duration time.Duration) {
	if !m.isEnabled() {
		return
	}
	IngestBatchesTotal.WithLabelValues(status).Inc()
	IngestBatchDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordIngestRecord(service, level string) {
	if !m.isEnabled() {
		return
	}
	IngestRecordsTotal.WithLabelValues(service, level).Inc()
}

func (m *Metrics) RecordQueueDrop(service string) {
	if !m.isEnabled() {
		return
	}
	ClientQueueDropsTotal.WithLabelValues(service).Inc()
}

func (m *Metrics) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	if !m.isEnabled() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordWorkflowStage(stage string, duration time.Duration) {
	if !m.isEnabled() {
		return
	}
	WorkflowStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *Metrics) RecordWorkflowOutcome(outcome string) {
	if !m.isEnabled() {
		return
	}
	WorkflowOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordLLMCall(provider, outcome string, duration time.Duration) {
	if !m.isEnabled() {
		return
	}
	LLMCallsTotal.WithLabelValues(provider, outcome).Inc()
	LLMCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit() {
	if !m.isEnabled() {
		return
	}
	CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if !m.isEnabled() {
		return
	}
	CacheMissesTotal.Inc()
}

func (m *Metrics) SetCacheSize(size int) {
	if !m.isEnabled() {
		return
	}
	CacheSize.Set(float64(size))
}

func (m *Metrics) RecordAnomalyAlert(alertType, severity string) {
	if !m.isEnabled() {
		return
	}
	AnomalyAlertsTotal.WithLabelValues(alertType, severity).Inc()
}

func (m *Metrics) SetWebSocketConnections(n int) {
	if !m.isEnabled() {
		return
	}
	WebSocketConnectionsActive.Set(float64(n))
}
