package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/flowgrid/pathcover/pkg/network"
)

// MemoryStore is an in-process LRU snapshot cache. Entries beyond maxEntries
// evict from the least recently used end.
type MemoryStore struct {
	maxEntries int
	entries    map[string]*memEntry
	lru        *list.List
	mu         sync.Mutex
	hits       uint64
	misses     uint64
}

type memEntry struct {
	key     string
	snap    *network.Snapshot
	element *list.Element
}

// NewMemoryStore creates a memory cache holding at most maxEntries snapshots.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		maxEntries: maxEntries,
		entries:    make(map[string]*memEntry),
		lru:        list.New(),
	}
}

// Get retrieves a snapshot and marks it most recently used.
func (m *MemoryStore) Get(_ context.Context, key string) (*network.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false, nil
	}

	m.lru.MoveToFront(entry.element)
	m.hits++
	return entry.snap, true, nil
}

// Put adds or refreshes a snapshot, evicting the oldest entry over capacity.
func (m *MemoryStore) Put(_ context.Context, key string, snap *network.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[key]; ok {
		entry.snap = snap
		m.lru.MoveToFront(entry.element)
		return nil
	}

	entry := &memEntry{key: key, snap: snap}
	entry.element = m.lru.PushFront(entry)
	m.entries[key] = entry

	if m.lru.Len() > m.maxEntries {
		m.evictOldest()
	}
	return nil
}

func (m *MemoryStore) evictOldest() {
	oldest := m.lru.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*memEntry)
	m.lru.Remove(oldest)
	delete(m.entries, entry.key)
}

// Len returns the current number of cached snapshots.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Stats returns hit and miss counters since construction.
func (m *MemoryStore) Stats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}
