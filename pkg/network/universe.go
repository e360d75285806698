package network

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Common sentinel errors
var (
	ErrUnboundedFilter = errors.New("filter selects the entire network; a bounded scope is required")
	ErrOutOfScope      = errors.New("element references a node outside the universe")
)

// Universe is the materialized element scope for one run: the node and link
// id sets plus a bidirectional mapping between each external id and a dense
// zero-based index. Built once per run, immutable thereafter.
type Universe struct {
	nodeIDs   []int64 // sorted ascending; position is the dense index
	linkIDs   []int64
	nodeIndex map[int64]int
	linkIndex map[int64]int
}

// Builder produces a Universe for a filter scope. Implemented by the store
// layer and decorated by the optional cache.
type Builder interface {
	Build(ctx context.Context, filter Filter) (*Universe, error)
}

// NewUniverse constructs a Universe from loaded elements. Every link endpoint
// must resolve inside the node set; a dangling endpoint is an error, not a
// silent skip.
func NewUniverse(nodes []Node, links []Link) (*Universe, error) {
	nodeIDs := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		nodeIDs = append(nodeIDs, n.ID)
	}
	linkIDs := make([]int64, 0, len(links))
	for _, l := range links {
		linkIDs = append(linkIDs, l.ID)
	}

	u := fromIDs(nodeIDs, linkIDs)

	for _, l := range links {
		if _, ok := u.nodeIndex[l.StartNodeID]; !ok {
			return nil, fmt.Errorf("link %d start node %d: %w", l.ID, l.StartNodeID, ErrOutOfScope)
		}
		if _, ok := u.nodeIndex[l.EndNodeID]; !ok {
			return nil, fmt.Errorf("link %d end node %d: %w", l.ID, l.EndNodeID, ErrOutOfScope)
		}
	}
	return u, nil
}

// FromSnapshot rebuilds a Universe from a previously captured id snapshot.
// Snapshots come from the cache layer, which stored a validated universe, so
// no endpoint check is repeated here.
func FromSnapshot(s *Snapshot) *Universe {
	return fromIDs(s.NodeIDs, s.LinkIDs)
}

func fromIDs(nodeIDs, linkIDs []int64) *Universe {
	nodes := dedupeSorted(nodeIDs)
	links := dedupeSorted(linkIDs)

	u := &Universe{
		nodeIDs:   nodes,
		linkIDs:   links,
		nodeIndex: make(map[int64]int, len(nodes)),
		linkIndex: make(map[int64]int, len(links)),
	}
	for i, id := range nodes {
		u.nodeIndex[id] = i
	}
	for i, id := range links {
		u.linkIndex[id] = i
	}
	return u
}

func dedupeSorted(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i == 0 || id != out[n-1] {
			out[n] = id
			n++
		}
	}
	return out[:n]
}

// NodeCount returns the number of nodes in scope.
func (u *Universe) NodeCount() int { return len(u.nodeIDs) }

// LinkCount returns the number of links in scope.
func (u *Universe) LinkCount() int { return len(u.linkIDs) }

// NodeIndex returns the dense index for a node id.
func (u *Universe) NodeIndex(id int64) (int, bool) {
	idx, ok := u.nodeIndex[id]
	return idx, ok
}

// LinkIndex returns the dense index for a link id.
func (u *Universe) LinkIndex(id int64) (int, bool) {
	idx, ok := u.linkIndex[id]
	return idx, ok
}

// ContainsNode reports whether the node id is in scope.
func (u *Universe) ContainsNode(id int64) bool {
	_, ok := u.nodeIndex[id]
	return ok
}

// ContainsLink reports whether the link id is in scope.
func (u *Universe) ContainsLink(id int64) bool {
	_, ok := u.linkIndex[id]
	return ok
}

// NodeIDs returns the node ids in index order. The returned slice is shared;
// callers must not mutate it.
func (u *Universe) NodeIDs() []int64 { return u.nodeIDs }

// LinkIDs returns the link ids in index order. The returned slice is shared;
// callers must not mutate it.
func (u *Universe) LinkIDs() []int64 { return u.linkIDs }

// Snapshot captures the universe's id sets for caching.
func (u *Universe) Snapshot() *Snapshot {
	return &Snapshot{
		NodeIDs: append([]int64(nil), u.nodeIDs...),
		LinkIDs: append([]int64(nil), u.linkIDs...),
	}
}

// Snapshot is the compact, serializable form of a Universe: two fixed-width
// id arrays. The cache layer persists snapshots keyed by the filter hash.
type Snapshot struct {
	NodeIDs []int64
	LinkIDs []int64
}
