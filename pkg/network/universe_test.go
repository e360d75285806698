package network

import (
	"errors"
	"testing"
)

func TestNewUniverse_IndexMapping(t *testing.T) {
	nodes := []Node{{ID: 30}, {ID: 10}, {ID: 20}}
	links := []Link{{ID: 5, StartNodeID: 10, EndNodeID: 20}}

	u, err := NewUniverse(nodes, links)
	if err != nil {
		t.Fatalf("NewUniverse failed: %v", err)
	}

	if u.NodeCount() != 3 || u.LinkCount() != 1 {
		t.Fatalf("Expected 3 nodes / 1 link, got %d / %d", u.NodeCount(), u.LinkCount())
	}

	// Indexes are dense and follow sorted id order
	for want, id := range []int64{10, 20, 30} {
		idx, ok := u.NodeIndex(id)
		if !ok || idx != want {
			t.Errorf("NodeIndex(%d) = %d, %v; want %d, true", id, idx, ok, want)
		}
	}

	if u.ContainsNode(99) {
		t.Error("ContainsNode(99) should be false")
	}
}

func TestNewUniverse_DanglingEndpoint(t *testing.T) {
	nodes := []Node{{ID: 1}, {ID: 2}}
	links := []Link{{ID: 7, StartNodeID: 1, EndNodeID: 3}}

	_, err := NewUniverse(nodes, links)
	if err == nil {
		t.Fatal("Expected error for link endpoint outside node set")
	}
	if !errors.Is(err, ErrOutOfScope) {
		t.Errorf("Expected ErrOutOfScope, got %v", err)
	}
}

func TestNewUniverse_Empty(t *testing.T) {
	u, err := NewUniverse(nil, nil)
	if err != nil {
		t.Fatalf("Empty universe should not be an error: %v", err)
	}
	if u.NodeCount() != 0 || u.LinkCount() != 0 {
		t.Errorf("Expected empty universe, got %d nodes / %d links", u.NodeCount(), u.LinkCount())
	}
}

func TestUniverse_SnapshotRoundTrip(t *testing.T) {
	nodes := []Node{{ID: 1}, {ID: 2}, {ID: 3}}
	links := []Link{{ID: 10, StartNodeID: 1, EndNodeID: 2}, {ID: 11, StartNodeID: 2, EndNodeID: 3}}

	u, err := NewUniverse(nodes, links)
	if err != nil {
		t.Fatalf("NewUniverse failed: %v", err)
	}

	restored := FromSnapshot(u.Snapshot())

	if restored.NodeCount() != u.NodeCount() || restored.LinkCount() != u.LinkCount() {
		t.Fatal("Snapshot round trip changed universe size")
	}
	for _, id := range u.NodeIDs() {
		a, _ := u.NodeIndex(id)
		b, ok := restored.NodeIndex(id)
		if !ok || a != b {
			t.Errorf("Node %d index mismatch after round trip: %d vs %d", id, a, b)
		}
	}
}

func TestFilter_Normalize(t *testing.T) {
	a := Filter{FabNo: 1, Toolsets: []string{"B", "A"}, E2EGroupNos: []int64{3, 1}}
	b := Filter{FabNo: 1, Toolsets: []string{"A", "B"}, E2EGroupNos: []int64{1, 3}}

	if a.Normalize() != b.Normalize() {
		t.Errorf("Normalize should be order independent: %q vs %q", a.Normalize(), b.Normalize())
	}

	if (Filter{}).IsEmpty() != true {
		t.Error("Zero filter should be empty")
	}
	if a.IsEmpty() {
		t.Error("Constrained filter should not be empty")
	}
}
