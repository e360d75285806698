package coverage

import (
	"errors"
	"fmt"

	"github.com/flowgrid/pathcover/pkg/network"
	"github.com/flowgrid/pathcover/pkg/paths"
)

// ErrUnknownElement reports a path id with no index in the declared
// universe, which means the path escaped its scope. Callers convert it into
// a critical connectivity finding rather than crashing the run.
var ErrUnknownElement = errors.New("element not in universe")

// Marked summarizes one MarkPath call.
type Marked struct {
	NewNodes int
	NewLinks int
}

// Metrics is a point-in-time coverage snapshot.
type Metrics struct {
	TotalNodes   int
	TotalLinks   int
	CoveredNodes int
	CoveredLinks int
	NodePct      float64
	LinkPct      float64
	CombinedPct  float64
}

// Tracker owns the two coverage bitsets for one run. All mutating operations
// are O(path length); percentage queries are O(1). Single-threaded by
// design: one tracker per run, no concurrent writers.
type Tracker struct {
	universe *network.Universe
	nodes    *Bitset
	links    *Bitset
}

// NewTracker creates an empty tracker sized to the universe.
func NewTracker(u *network.Universe) *Tracker {
	return &Tracker{
		universe: u,
		nodes:    NewBitset(u.NodeCount()),
		links:    NewBitset(u.LinkCount()),
	}
}

// resolve maps the path's element ids to dense indexes, failing on any id
// outside the universe. Resolving before mutating keeps MarkPath atomic with
// respect to a single path: a bad id mutates nothing.
func (t *Tracker) resolve(p *paths.Path) (nodeIdx, linkIdx []int, err error) {
	nodeIDs := p.NodeIDs()
	linkIDs := p.LinkIDs()

	nodeIdx = make([]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idx, ok := t.universe.NodeIndex(id)
		if !ok {
			return nil, nil, fmt.Errorf("node %d: %w", id, ErrUnknownElement)
		}
		nodeIdx[i] = idx
	}

	linkIdx = make([]int, len(linkIDs))
	for i, id := range linkIDs {
		idx, ok := t.universe.LinkIndex(id)
		if !ok {
			return nil, nil, fmt.Errorf("link %d: %w", id, ErrUnknownElement)
		}
		linkIdx[i] = idx
	}
	return nodeIdx, linkIdx, nil
}

// MarkPath sets the coverage bits for every node and link the path touches.
// Marking is idempotent and coverage is monotonically non-decreasing.
func (t *Tracker) MarkPath(p *paths.Path) (Marked, error) {
	nodeIdx, linkIdx, err := t.resolve(p)
	if err != nil {
		return Marked{}, err
	}

	var m Marked
	for _, idx := range nodeIdx {
		if t.nodes.Set(idx) {
			m.NewNodes++
		}
	}
	for _, idx := range linkIdx {
		if t.links.Set(idx) {
			m.NewLinks++
		}
	}
	return m, nil
}

// WouldImprove reports whether marking the path would set any currently
// unset bit, without mutating state. Coverage-guided sampling uses it to
// skip paths that add nothing.
func (t *Tracker) WouldImprove(p *paths.Path) (bool, error) {
	nodeIdx, linkIdx, err := t.resolve(p)
	if err != nil {
		return false, err
	}
	for _, idx := range nodeIdx {
		if !t.nodes.Test(idx) {
			return true, nil
		}
	}
	for _, idx := range linkIdx {
		if !t.links.Test(idx) {
			return true, nil
		}
	}
	return false, nil
}

// CoveredNode reports whether the node id has appeared in an accepted path.
// Unknown ids report false; guided sampling treats them as uninteresting.
func (t *Tracker) CoveredNode(id int64) bool {
	idx, ok := t.universe.NodeIndex(id)
	if !ok {
		return false
	}
	return t.nodes.Test(idx)
}

// NodePct returns the covered fraction of nodes in [0,1].
func (t *Tracker) NodePct() float64 { return t.nodes.Fraction() }

// LinkPct returns the covered fraction of links in [0,1].
func (t *Tracker) LinkPct() float64 { return t.links.Fraction() }

// CombinedPct returns the arithmetic mean of node and link coverage, the
// single scalar the orchestrator compares against the run target.
func (t *Tracker) CombinedPct() float64 {
	return (t.NodePct() + t.LinkPct()) / 2
}

// Snapshot returns current coverage metrics.
func (t *Tracker) Snapshot() Metrics {
	return Metrics{
		TotalNodes:   t.nodes.Size(),
		TotalLinks:   t.links.Size(),
		CoveredNodes: t.nodes.Count(),
		CoveredLinks: t.links.Count(),
		NodePct:      t.NodePct(),
		LinkPct:      t.LinkPct(),
		CombinedPct:  t.CombinedPct(),
	}
}
