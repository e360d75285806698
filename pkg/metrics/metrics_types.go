package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Sampling Metrics
	AttemptsTotal        *prometheus.CounterVec
	PairSelectionsTotal  *prometheus.CounterVec
	NodeCoveragePct      prometheus.Gauge
	LinkCoveragePct      prometheus.Gauge
	CombinedCoveragePct  prometheus.Gauge
	RelaxationLevel      prometheus.Gauge
	PlateauEventsTotal   prometheus.Counter
	PathFindDuration     prometheus.Histogram
	UniquePathsTotal     prometheus.Gauge
	RunIterationsTotal   prometheus.Counter

	// Validation Metrics
	FindingsTotal      *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	PathsValidated     prometheus.Counter

	// Store Metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	StoreRetriesTotal      *prometheus.CounterVec

	// Cache Metrics
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec
	CacheSizeBytes      prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide shared registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initSamplingMetrics()
	r.initValidationMetrics()
	r.initStoreMetrics()
	r.initCacheMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
