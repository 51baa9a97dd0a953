package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process counters exposed at /metrics. Registered on a
// dedicated registry so tests can build throwaway instances.
type Metrics struct {
	registry *prometheus.Registry

	JobsCompleted      *prometheus.CounterVec
	FallbackCalls      prometheus.Counter
	SLABreaches        prometheus.Counter
	ProcessingDuration prometheus.Histogram
}

// New creates a Metrics set on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kakdoma_jobs_completed_total",
			Help: "Total number of intake jobs by terminal status",
		}, []string{"status"}),
		FallbackCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "kakdoma_fallback_calls_total",
			Help: "Total number of fallback provider invocations",
		}),
		SLABreaches: factory.NewCounter(prometheus.CounterOpts{
			Name: "kakdoma_sla_breaches_total",
			Help: "Total number of jobs that exceeded their processing budget",
		}),
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kakdoma_job_processing_seconds",
			Help:    "Wall-clock duration of job processing",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// JobCompleted records one terminal job transition.
func (m *Metrics) JobCompleted(status string, seconds float64) {
	m.JobsCompleted.WithLabelValues(status).Inc()
	m.ProcessingDuration.Observe(seconds)
}
