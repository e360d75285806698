package coverage

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/flowgrid/pathcover/pkg/network"
	"github.com/flowgrid/pathcover/pkg/paths"
)

// walk is a generated contiguous traversal of the line universe.
type walk struct {
	Start int64
	Hops  int64
}

func walkType() reflect.Type {
	return reflect.TypeOf(walk{})
}

// path materializes the walk, clamping its end to the last node of the line.
func (w walk) path(n int) *paths.Path {
	end := w.Start + w.Hops
	if end > int64(n) {
		end = int64(n)
	}
	ids := make([]int64, 0, end-w.Start+1)
	for id := w.Start; id <= end; id++ {
		ids = append(ids, id)
	}
	return linePath(ids...)
}

// propertyUniverse mirrors lineUniverse without a testing.T so it can run
// inside property closures.
func propertyUniverse(n int) *network.Universe {
	nodes := make([]network.Node, n)
	for i := range nodes {
		nodes[i] = network.Node{ID: int64(i + 1)}
	}
	links := make([]network.Link, 0, n-1)
	for i := 1; i < n; i++ {
		links = append(links, network.Link{
			ID:          int64(100 + i),
			StartNodeID: int64(i),
			EndNodeID:   int64(i + 1),
		})
	}
	u, err := network.NewUniverse(nodes, links)
	if err != nil {
		panic(err)
	}
	return u
}

// TestCoverageInvariants uses property-based testing to verify coverage
// accounting invariants that must hold for any sequence of marked paths.
func TestCoverageInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	const universeNodes = 32

	// Generates a walk as a start node plus a hop count, clamped to the line
	genWalk := gen.Struct(walkType(), map[string]gopter.Gen{
		"Start": gen.Int64Range(1, universeNodes-1),
		"Hops":  gen.Int64Range(1, 8),
	})

	// Property 1: marking never decreases coverage
	properties.Property("coverage is monotonically non-decreasing", prop.ForAll(
		func(walks []walk) bool {
			u := propertyUniverse(universeNodes)
			tr := NewTracker(u)

			prev := 0.0
			for _, w := range walks {
				if _, err := tr.MarkPath(w.path(universeNodes)); err != nil {
					return false
				}
				if tr.CombinedPct() < prev {
					return false
				}
				prev = tr.CombinedPct()
			}
			return true
		},
		gen.SliceOf(genWalk),
	))

	// Property 2: marking the same path twice equals marking it once
	properties.Property("marking is idempotent", prop.ForAll(
		func(w walk) bool {
			u := propertyUniverse(universeNodes)
			once := NewTracker(u)
			twice := NewTracker(propertyUniverse(universeNodes))

			p := w.path(universeNodes)
			if _, err := once.MarkPath(p); err != nil {
				return false
			}
			if _, err := twice.MarkPath(p); err != nil {
				return false
			}
			if _, err := twice.MarkPath(p); err != nil {
				return false
			}
			return once.Snapshot() == twice.Snapshot()
		},
		genWalk,
	))

	// Property 3: WouldImprove is false exactly when every element is marked
	properties.Property("WouldImprove agrees with marked state", prop.ForAll(
		func(w walk) bool {
			tr := NewTracker(propertyUniverse(universeNodes))
			p := w.path(universeNodes)

			improveBefore, err := tr.WouldImprove(p)
			if err != nil || !improveBefore {
				return false
			}
			if _, err := tr.MarkPath(p); err != nil {
				return false
			}
			improveAfter, err := tr.WouldImprove(p)
			return err == nil && !improveAfter
		},
		genWalk,
	))

	properties.TestingRun(t)
}
