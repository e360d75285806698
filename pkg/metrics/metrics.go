package metrics

import (
	"time"
)

// RecordAttempt records one sampling attempt with its outcome.
func (r *Registry) RecordAttempt(outcome string) {
	r.AttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordPairSelection records one pair selection by strategy.
func (r *Registry) RecordPairSelection(strategy string) {
	r.PairSelectionsTotal.WithLabelValues(strategy).Inc()
}

// UpdateCoverage publishes the current coverage fractions.
func (r *Registry) UpdateCoverage(nodePct, linkPct, combinedPct float64) {
	r.NodeCoveragePct.Set(nodePct)
	r.LinkCoveragePct.Set(linkPct)
	r.CombinedCoveragePct.Set(combinedPct)
}

// RecordPathFind records a path finder call duration.
func (r *Registry) RecordPathFind(duration time.Duration) {
	r.PathFindDuration.Observe(duration.Seconds())
}

// RecordValidation records a validation pass and its findings.
func (r *Registry) RecordValidation(duration time.Duration, severityScopes [][2]string) {
	r.PathsValidated.Inc()
	r.ValidationDuration.Observe(duration.Seconds())
	for _, ss := range severityScopes {
		r.FindingsTotal.WithLabelValues(ss[0], ss[1]).Inc()
	}
}

// RecordStoreOperation records a store call with its duration.
func (r *Registry) RecordStoreOperation(operation, status string, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStoreRetry records a retried transient store error.
func (r *Registry) RecordStoreRetry(operation string) {
	r.StoreRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordCacheHit records a universe cache hit.
func (r *Registry) RecordCacheHit(backend string) {
	r.CacheHitsTotal.WithLabelValues(backend).Inc()
}

// RecordCacheMiss records a universe cache miss.
func (r *Registry) RecordCacheMiss(backend string) {
	r.CacheMissesTotal.WithLabelValues(backend).Inc()
}

// RecordCacheEviction records a cache entry eviction.
func (r *Registry) RecordCacheEviction(reason string) {
	r.CacheEvictionsTotal.WithLabelValues(reason).Inc()
}
