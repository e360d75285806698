// Package cache persists universe snapshots keyed by filter scope, so that
// repeated runs over the same scope skip the network queries entirely.
// Correctness never depends on the cache: a miss, an expired entry, or a
// corrupt entry falls through to the wrapped builder.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/flowgrid/pathcover/pkg/logging"
	"github.com/flowgrid/pathcover/pkg/metrics"
	"github.com/flowgrid/pathcover/pkg/network"
)

// ErrCorrupt marks an entry whose stored bytes do not decode to a snapshot.
// Stores treat it as a miss and drop the entry.
var ErrCorrupt = errors.New("cache entry is corrupt")

// Key derives the stable cache key for a filter scope. Two filters that
// normalize identically share one entry regardless of slice ordering.
func Key(f network.Filter) string {
	sum := sha256.Sum256([]byte(f.Normalize()))
	return hex.EncodeToString(sum[:])
}

// Store is one cache backend. Get returns (nil, false, nil) on a clean miss;
// an error return means the backend itself failed, not that the key is
// absent.
type Store interface {
	Get(ctx context.Context, key string) (*network.Snapshot, bool, error)
	Put(ctx context.Context, key string, snap *network.Snapshot) error
}

// CachingBuilder decorates a network.Builder with a snapshot cache.
type CachingBuilder struct {
	inner   network.Builder
	store   Store
	backend string
	log     logging.Logger
	met     *metrics.Registry
}

// NewCachingBuilder wraps inner with store. The backend name labels cache
// metrics. A nil logger logs nowhere and a nil registry records nothing.
func NewCachingBuilder(inner network.Builder, store Store, backend string, log logging.Logger, met *metrics.Registry) *CachingBuilder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CachingBuilder{inner: inner, store: store, backend: backend, log: log, met: met}
}

// Build satisfies network.Builder. Cache failures on either the read or the
// write side are logged and absorbed; only the inner builder's error is
// surfaced.
func (b *CachingBuilder) Build(ctx context.Context, filter network.Filter) (*network.Universe, error) {
	key := Key(filter)

	snap, ok, err := b.store.Get(ctx, key)
	if err != nil {
		b.log.Warn("universe cache read failed",
			logging.Component("cache"),
			logging.String("backend", b.backend),
			logging.Error(err))
	}
	if ok {
		if b.met != nil {
			b.met.RecordCacheHit(b.backend)
		}
		b.log.Debug("universe cache hit",
			logging.Component("cache"),
			logging.String("backend", b.backend),
			logging.Int("nodes", len(snap.NodeIDs)),
			logging.Int("links", len(snap.LinkIDs)))
		return network.FromSnapshot(snap), nil
	}
	if b.met != nil {
		b.met.RecordCacheMiss(b.backend)
	}

	u, err := b.inner.Build(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := b.store.Put(ctx, key, u.Snapshot()); err != nil {
		b.log.Warn("universe cache write failed",
			logging.Component("cache"),
			logging.String("backend", b.backend),
			logging.Error(err))
	}
	return u, nil
}
