// Package metrics holds the Prometheus collectors for the ingest and query
// pipelines. Every collector lives on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fastrag"

// Outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeUnsupported = "unsupported"
	OutcomeEmptyIndex  = "empty_index"
	OutcomeError       = "error"
)

// Pipeline stages.
const (
	StageParse   = "parse"
	StageEmbed   = "embed"
	StageStore   = "store"
	StageSearch  = "search"
	StageExtract = "extract"
)

// Metrics is the set of pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	ingests   *prometheus.CounterVec
	queries   *prometheus.CounterVec
	stages    *prometheus.HistogramVec
	documents prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Documents submitted for ingestion by outcome.",
		}, []string{"outcome"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_total",
			Help:      "Queries served by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Documents in the vector index at the last health check or ingest.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingests,
		m.queries,
		m.stages,
		m.documents,
	)
	return m
}

// Ingest counts one ingestion attempt.
func (m *Metrics) Ingest(outcome string) {
	if m == nil {
		return
	}
	m.ingests.WithLabelValues(outcome).Inc()
}

// Query counts one query against endpoint.
func (m *Metrics) Query(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(endpoint, outcome).Inc()
}

// Stage records how long a pipeline stage took.
func (m *Metrics) Stage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}

// Documents sets the index size gauge.
func (m *Metrics) Documents(n int) {
	if m == nil {
		return
	}
	m.documents.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
