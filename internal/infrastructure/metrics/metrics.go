// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"irecStatApp/internal/domain/model"
)

// Metrics provides observability for the analytics service.
type Metrics struct {
	registry *prometheus.Registry

	// Cache lookups by dataset kind and result (hit, miss)
	CacheLookups *prometheus.CounterVec

	// Dataset composition latency by kind
	ComputeLatency *prometheus.HistogramVec

	// Data-quality warnings by code
	ValidationWarnings *prometheus.CounterVec

	// Synthesized itemized events by kind
	SynthesizedEvents *prometheus.CounterVec

	// Project updates handled by the ingestion pipeline, by outcome
	ProjectUpdates *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry, together
// with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "irec_cache_lookups_total",
			Help: "Analytics cache lookups by dataset kind and result",
		}, []string{"dataset", "result"}),

		ComputeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "irec_dataset_compute_duration_seconds",
			Help:    "Duration of a full dataset recomputation after a cache miss",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"dataset"}),

		ValidationWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "irec_validation_warnings_total",
			Help: "Data-quality warnings raised while composing analytics",
		}, []string{"code"}),

		SynthesizedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "irec_synthesized_events_total",
			Help: "Itemized events produced by the record synthesizer",
		}, []string{"kind"}),

		ProjectUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "irec_project_updates_total",
			Help: "Project updates handled by the ingestion pipeline",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CacheHit(kind model.DatasetKind) {
	if m != nil {
		m.CacheLookups.WithLabelValues(string(kind), "hit").Inc()
	}
}

func (m *Metrics) CacheMiss(kind model.DatasetKind) {
	if m != nil {
		m.CacheLookups.WithLabelValues(string(kind), "miss").Inc()
	}
}

// ObserveCompute records how long composing a dataset took.
func (m *Metrics) ObserveCompute(kind model.DatasetKind, d time.Duration) {
	if m != nil {
		m.ComputeLatency.WithLabelValues(string(kind)).Observe(d.Seconds())
	}
}

func (m *Metrics) ValidationWarning(code string) {
	if m != nil {
		m.ValidationWarnings.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) EventsSynthesized(kind model.EventKind, n int) {
	if m != nil && n > 0 {
		m.SynthesizedEvents.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// ProjectUpdate records the outcome of one ingested project update
// (applied, duplicate, unchanged, rejected).
func (m *Metrics) ProjectUpdate(outcome string) {
	if m != nil {
		m.ProjectUpdates.WithLabelValues(outcome).Inc()
	}
}
