package cache

import (
	"container/list"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flowgrid/pathcover/pkg/metrics"
	"github.com/flowgrid/pathcover/pkg/network"
)

const diskEntrySuffix = ".snap"

// DiskOptions bound a DiskStore. Zero values fall back to the defaults.
type DiskOptions struct {
	TTL        time.Duration // entry lifetime, default 24h
	MaxEntries int           // default 64
	MaxBytes   int64         // total payload budget, default 256 MiB
	Metrics    *metrics.Registry
}

func (o DiskOptions) withDefaults() DiskOptions {
	if o.TTL <= 0 {
		o.TTL = 24 * time.Hour
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = 64
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 256 << 20
	}
	return o
}

// DiskStore persists snapshots as compressed files under one directory.
// Writes go through a temp file and rename, so readers never observe a
// partial entry. Capacity is bounded by entry count and total bytes with
// LRU eviction; entries older than the TTL expire on read.
type DiskStore struct {
	dir  string
	opts DiskOptions

	mu         sync.Mutex
	entries    map[string]*diskEntry
	lru        *list.List
	totalBytes int64
}

type diskEntry struct {
	key     string
	size    int64
	written time.Time
	element *list.Element
}

// NewDiskStore opens or creates a disk cache at dir, indexing any entries a
// previous process left behind.
func NewDiskStore(dir string, opts DiskOptions) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	d := &DiskStore{
		dir:     dir,
		opts:    opts.withDefaults(),
		entries: make(map[string]*diskEntry),
		lru:     list.New(),
	}
	if err := d.loadIndex(); err != nil {
		return nil, err
	}
	return d, nil
}

// loadIndex rebuilds the in-memory LRU from the files on disk, oldest last.
func (d *DiskStore) loadIndex() error {
	dirEntries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}

	type onDisk struct {
		key     string
		size    int64
		written time.Time
	}
	var found []onDisk
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), diskEntrySuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		found = append(found, onDisk{
			key:     strings.TrimSuffix(de.Name(), diskEntrySuffix),
			size:    info.Size(),
			written: info.ModTime(),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].written.After(found[j].written) })

	for _, f := range found {
		entry := &diskEntry{key: f.key, size: f.size, written: f.written}
		entry.element = d.lru.PushBack(entry)
		d.entries[f.key] = entry
		d.totalBytes += f.size
	}
	d.enforceCapacity()
	d.publishSize()
	return nil
}

func (d *DiskStore) path(key string) string {
	return filepath.Join(d.dir, key+diskEntrySuffix)
}

// Get reads and decodes an entry. Expired entries are dropped and reported
// as misses; a corrupt entry is dropped and reported as an error so the
// caller falls through to a rebuild.
func (d *DiskStore) Get(_ context.Context, key string) (*network.Snapshot, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Since(entry.written) > d.opts.TTL {
		d.remove(entry, "ttl")
		d.publishSize()
		return nil, false, nil
	}

	data, err := os.ReadFile(d.path(key))
	if err != nil {
		d.remove(entry, "missing")
		d.publishSize()
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		d.remove(entry, "corrupt")
		d.publishSize()
		return nil, false, err
	}

	d.lru.MoveToFront(entry.element)
	return snap, true, nil
}

// Put writes an entry atomically and applies the capacity bounds.
func (d *DiskStore) Put(_ context.Context, key string, snap *network.Snapshot) error {
	data := encodeSnapshot(snap)

	tmp, err := os.CreateTemp(d.dir, "put-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp entry: %w", err)
	}
	if err := os.Rename(tmpName, d.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish entry: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.entries[key]; ok {
		d.totalBytes += int64(len(data)) - entry.size
		entry.size = int64(len(data))
		entry.written = time.Now()
		d.lru.MoveToFront(entry.element)
	} else {
		entry := &diskEntry{key: key, size: int64(len(data)), written: time.Now()}
		entry.element = d.lru.PushFront(entry)
		d.entries[key] = entry
		d.totalBytes += entry.size
	}

	d.enforceCapacity()
	d.publishSize()
	return nil
}

// enforceCapacity evicts from the LRU tail until both bounds hold.
// Callers hold d.mu.
func (d *DiskStore) enforceCapacity() {
	for d.lru.Len() > d.opts.MaxEntries || d.totalBytes > d.opts.MaxBytes {
		oldest := d.lru.Back()
		if oldest == nil {
			return
		}
		d.remove(oldest.Value.(*diskEntry), "capacity")
	}
}

// remove drops an entry from the index and best-effort deletes its file.
// Callers hold d.mu.
func (d *DiskStore) remove(entry *diskEntry, reason string) {
	d.lru.Remove(entry.element)
	delete(d.entries, entry.key)
	d.totalBytes -= entry.size
	os.Remove(d.path(entry.key))
	if d.opts.Metrics != nil {
		d.opts.Metrics.RecordCacheEviction(reason)
	}
}

// publishSize updates the size gauge. Callers hold d.mu.
func (d *DiskStore) publishSize() {
	if d.opts.Metrics != nil {
		d.opts.Metrics.CacheSizeBytes.Set(float64(d.totalBytes))
	}
}

// Len returns the number of indexed entries.
func (d *DiskStore) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lru.Len()
}

// SizeBytes returns the total payload bytes currently indexed.
func (d *DiskStore) SizeBytes() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalBytes
}
