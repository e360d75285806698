package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initValidationMetrics() {
	r.FindingsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathcover_findings_total",
			Help: "Total validation findings by severity and scope",
		},
		[]string{"severity", "scope"},
	)

	r.ValidationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pathcover_validation_duration_seconds",
			Help:    "Single-pass path validation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5},
		},
	)

	r.PathsValidated = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathcover_paths_validated_total",
			Help: "Total number of paths run through the validator",
		},
	)
}
