// Package metrics exposes the Prometheus collectors instrumenting the
// pipeline via github.com/prometheus/client_golang. Every stage named in
// spec.md's request flow gets a counter or histogram here so operators can
// see where time and rejections go.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector bundles every collector the pipeline updates. It's safe
// for concurrent use — every prometheus.Collector already is.
type MetricsCollector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	DetectionEntitiesTotal *prometheus.CounterVec
	LLMInferenceDuration   prometheus.Histogram
	LLMInferenceTimeouts   prometheus.Counter
	LLMInferenceErrors     prometheus.Counter

	CircuitBreakerState prometheus.Gauge

	PolicyActionsTotal *prometheus.CounterVec

	AttachmentsSavedTotal  *prometheus.CounterVec
	OCRDuration            prometheus.Histogram
	RedactionsWrittenTotal *prometheus.CounterVec

	LogRepositoryWriteErrors prometheus.Counter
}

// NewMetricsCollector registers every collector against reg and returns the
// bundle. Pass prometheus.NewRegistry() in tests to avoid colliding with the
// global default registry across parallel test packages.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_requests_total",
			Help: "Total number of /api/logs requests, by action.",
		}, []string{"action"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_request_duration_seconds",
			Help:    "End-to-end request handling latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),

		DetectionEntitiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_detection_entities_total",
			Help: "Total sensitive entities detected, by label and provenance.",
		}, []string{"label", "provenance"}),

		LLMInferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_llm_inference_duration_seconds",
			Help:    "Duration of local LLM Detector Runtime calls.",
			Buckets: prometheus.DefBuckets,
		}),

		LLMInferenceTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_llm_inference_timeouts_total",
			Help: "Total LLM Detector Runtime calls that hit the timeout fallback.",
		}),

		LLMInferenceErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_llm_inference_errors_total",
			Help: "Total LLM Detector Runtime calls that failed outright.",
		}),

		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_llm_circuit_breaker_state",
			Help: "0=closed, 1=open, 2=half-open.",
		}),

		PolicyActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_policy_actions_total",
			Help: "Total Policy Engine decisions, by action.",
		}, []string{"action"}),

		AttachmentsSavedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_attachments_saved_total",
			Help: "Total attachments persisted, by mime type.",
		}, []string{"mime"}),

		OCRDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_ocr_duration_seconds",
			Help:    "Duration of OCR Adapter invocations.",
			Buckets: prometheus.DefBuckets,
		}),

		RedactionsWrittenTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_redactions_written_total",
			Help: "Total redacted/detection sibling files written, by kind.",
		}, []string{"kind"}),

		LogRepositoryWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_log_repository_write_errors_total",
			Help: "Total failures persisting a request log row.",
		}),
	}
}

// ObserveRequest records one completed request's action and latency.
func (m *MetricsCollector) ObserveRequest(action string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(action).Inc()
	m.RequestDuration.WithLabelValues(action).Observe(d.Seconds())
}
