// Package observability exposes Prometheus metrics for the fact-checking
// pipeline. Every method is safe to call on a nil *Metrics, so components
// built without metrics need no special casing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "claimcheck"

// Extraction outcomes
const (
	ExtractOK          = "ok"
	ExtractCached      = "cached"
	ExtractSkipped     = "skipped"      // Document extension, robots.txt
	ExtractTerminal    = "terminal"     // 403/404
	ExtractFailed      = "failed"       // Attempts exhausted
	ExtractRateLimited = "rate_limited" // Limiter wait aborted
)

// Metrics holds every collector the service registers
type Metrics struct {
	// ResultsTotal counts finished checks. Labels: verdict
	ResultsTotal *prometheus.CounterVec

	// AggregationsTotal counts aggregation outcomes. Labels: status
	AggregationsTotal *prometheus.CounterVec

	// ExtractionsTotal counts article extraction outcomes. Labels: outcome
	ExtractionsTotal *prometheus.CounterVec

	// LLMDurationSeconds measures language model round trips. Labels: status
	LLMDurationSeconds *prometheus.HistogramVec

	// CyclesTotal counts background cycles. Labels: status
	CyclesTotal *prometheus.CounterVec

	// DeliveriesTotal counts webhook deliveries. Labels: outcome
	DeliveriesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
// Registering twice on the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "results_total",
				Help:      "Fact-check results by normalized verdict",
			},
			[]string{"verdict"},
		),
		AggregationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "aggregations_total",
				Help:      "Evidence aggregation outcomes by status",
			},
			[]string{"status"},
		),
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "extractions_total",
				Help:      "Article extraction outcomes",
			},
			[]string{"outcome"},
		),
		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "llm_duration_seconds",
				Help:      "Language model request duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"status"},
		),
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cycles_total",
				Help:      "Background verification cycles by status",
			},
			[]string{"status"},
		),
		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "deliveries_total",
				Help:      "Webhook deliveries by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveResult records a finished check
func (m *Metrics) ObserveResult(verdict string) {
	if m == nil {
		return
	}
	m.ResultsTotal.WithLabelValues(verdict).Inc()
}

// ObserveAggregation records an aggregation outcome
func (m *Metrics) ObserveAggregation(status string) {
	if m == nil {
		return
	}
	m.AggregationsTotal.WithLabelValues(status).Inc()
}

// ObserveExtraction records an extraction outcome
func (m *Metrics) ObserveExtraction(outcome string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveLLM records a language model round trip
func (m *Metrics) ObserveLLM(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.LLMDurationSeconds.WithLabelValues(status(err)).Observe(d.Seconds())
}

// ObserveCycle records a finished background cycle
func (m *Metrics) ObserveCycle(err error) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(status(err)).Inc()
}

// ObserveDelivery records a webhook delivery outcome
func (m *Metrics) ObserveDelivery(outcome string) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(outcome).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
