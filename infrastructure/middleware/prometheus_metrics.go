// Package middleware provides cross-cutting concerns for the evaluation
// engine: Prometheus metrics and OpenTelemetry tracer setup.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-nuggeteval/internal/ports"
)

const namespace = "nuggeteval"

// Metric names understood by PrometheusMetrics. Anything else is counted
// under nuggeteval_events_total or nuggeteval_state.
const (
	MetricLLMRequests = "llm_requests_total"
	MetricLLMLatency  = "llm_latency_seconds"
	MetricLLMTokens   = "llm_tokens_total"
	MetricJudgments   = "judgments_total"
	MetricSentences   = "sentences_total"
	MetricReports     = "reports_total"
)

const unknown = "unknown"

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. Every vector is registered on the registerer given to
// NewPrometheusMetrics.
type PrometheusMetrics struct {
	llmRequests       *prometheus.CounterVec
	llmLatency        *prometheus.HistogramVec
	llmTokens         *prometheus.CounterVec
	judgments         *prometheus.CounterVec
	sentences         *prometheus.CounterVec
	reports           *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	events            *prometheus.CounterVec
	state             *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the collector's vectors on reg. A nil reg
// uses the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricLLMRequests,
				Help:      "LLM provider calls by outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      MetricLLMLatency,
				Help:      "Latency of LLM provider calls.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricLLMTokens,
				Help:      "Tokens exchanged with LLM providers.",
			},
			[]string{"provider", "model", "token_type"},
		),
		judgments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricJudgments,
				Help:      "Oracle judgments by type and verdict.",
			},
			[]string{"judgment_type", "verdict"},
		),
		sentences: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricSentences,
				Help:      "Evaluated sentences by outcome.",
			},
			[]string{"outcome"},
		),
		reports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricReports,
				Help:      "Evaluated reports by status.",
			},
			[]string{"status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of evaluation operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Counters without a dedicated metric.",
			},
			[]string{"event"},
		),
		state: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state",
				Help:      "Current values of runtime gauges.",
			},
			[]string{"metric"},
		),
	}
}

// label returns labels[key], or "unknown" when it is absent or empty.
// Reading a nil map is safe.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return unknown
}

// RecordLatency observes duration under the operation label.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	pm.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter routes known metric names to their vectors.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricLLMRequests:
		pm.llmRequests.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Add(value)
	case MetricLLMTokens:
		pm.llmTokens.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "token_type"),
		).Add(value)
	case MetricJudgments:
		pm.judgments.WithLabelValues(label(labels, "judgment_type"), label(labels, "verdict")).Add(value)
	case MetricSentences:
		pm.sentences.WithLabelValues(label(labels, "outcome")).Add(value)
	case MetricReports:
		pm.reports.WithLabelValues(label(labels, "status")).Add(value)
	default:
		pm.events.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets a runtime gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.state.WithLabelValues(metric).Set(value)
}

// RecordHistogram records LLM latency; other histograms are treated as
// operation durations in seconds.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == MetricLLMLatency {
		pm.llmLatency.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Observe(value)
		return
	}
	pm.operationDuration.WithLabelValues(metric).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
