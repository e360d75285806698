package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSamplingMetrics() {
	r.AttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathcover_attempts_total",
			Help: "Total number of sampling attempts by outcome",
		},
		[]string{"outcome"},
	)

	r.PairSelectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathcover_pair_selections_total",
			Help: "Total number of pair selections by strategy",
		},
		[]string{"strategy"},
	)

	r.NodeCoveragePct = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathcover_node_coverage_fraction",
			Help: "Fraction of universe nodes covered by accepted paths",
		},
	)

	r.LinkCoveragePct = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathcover_link_coverage_fraction",
			Help: "Fraction of universe links covered by accepted paths",
		},
	)

	r.CombinedCoveragePct = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathcover_combined_coverage_fraction",
			Help: "Combined node and link coverage fraction",
		},
	)

	r.RelaxationLevel = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathcover_relaxation_level",
			Help: "Current bias relaxation level of the run",
		},
	)

	r.PlateauEventsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathcover_plateau_events_total",
			Help: "Total number of detected coverage plateaus",
		},
	)

	r.PathFindDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pathcover_path_find_duration_seconds",
			Help:    "Path finder call duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
	)

	r.UniquePathsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathcover_unique_paths",
			Help: "Number of distinct paths accepted in the current run",
		},
	)

	r.RunIterationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathcover_run_iterations_total",
			Help: "Total sampling loop iterations across all states",
		},
	)
}
