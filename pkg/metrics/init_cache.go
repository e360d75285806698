package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCacheMetrics() {
	r.CacheHitsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathcover_cache_hits_total",
			Help: "Universe cache hits by backend",
		},
		[]string{"backend"},
	)

	r.CacheMissesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathcover_cache_misses_total",
			Help: "Universe cache misses by backend",
		},
		[]string{"backend"},
	)

	r.CacheEvictionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathcover_cache_evictions_total",
			Help: "Universe cache evictions by reason",
		},
		[]string{"reason"},
	)

	r.CacheSizeBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathcover_cache_size_bytes",
			Help: "Total bytes held by the disk universe cache",
		},
	)
}
