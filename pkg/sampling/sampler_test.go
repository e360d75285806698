package sampling

import (
	"testing"

	"github.com/flowgrid/pathcover/pkg/coverage"
	"github.com/flowgrid/pathcover/pkg/network"
	"github.com/flowgrid/pathcover/pkg/paths"
)

// twoEquipmentUniverse builds one toolset with two pieces of equipment whose
// PoCs sit on the given node ids.
func twoEquipmentUniverse(nodeA, nodeB int64) *SamplingUniverse {
	equipment := []network.Equipment{
		{ID: 1, Toolset: "TS01", CategoryNo: 10, PhaseNo: 1},
		{ID: 2, Toolset: "TS01", CategoryNo: 20, PhaseNo: 1},
	}
	pocs := []network.PoC{
		{ID: 11, EquipmentID: 1, NodeID: nodeA, UtilityNo: 1, IsUsed: true},
		{ID: 22, EquipmentID: 2, NodeID: nodeB, UtilityNo: 1, IsUsed: true},
	}
	return NewSamplingUniverse(equipment, pocs)
}

func TestNewSamplingUniverse_Grouping(t *testing.T) {
	equipment := []network.Equipment{
		{ID: 1, Toolset: "TS01"},
		{ID: 2, Toolset: "TS01"},
		{ID: 3, Toolset: "TS02"},
	}
	pocs := []network.PoC{
		{ID: 11, EquipmentID: 1, NodeID: 100},
		{ID: 12, EquipmentID: 1, NodeID: 101},
		{ID: 31, EquipmentID: 3, NodeID: 300},
		{ID: 99, EquipmentID: 999, NodeID: 400}, // unknown equipment, dropped
	}

	u := NewSamplingUniverse(equipment, pocs)
	if len(u.Toolsets) != 2 {
		t.Fatalf("Expected 2 toolsets, got %d", len(u.Toolsets))
	}
	if u.EquipmentCount() != 3 {
		t.Errorf("EquipmentCount = %d, want 3", u.EquipmentCount())
	}
	if u.PoCCount() != 3 {
		t.Errorf("PoCCount = %d, want 3 (orphan PoC must be dropped)", u.PoCCount())
	}
	// Toolsets come back in name order
	if u.Toolsets[0].Name != "TS01" || u.Toolsets[1].Name != "TS02" {
		t.Errorf("Unexpected toolset order: %s, %s", u.Toolsets[0].Name, u.Toolsets[1].Name)
	}
}

func TestNextPair_DistinctEquipmentAndDistance(t *testing.T) {
	u := twoEquipmentUniverse(10, 200)
	bias := DefaultBiasConfig()
	s := NewPairSampler(u, nil, bias, 1, nil)

	for i := 0; i < 20; i++ {
		pair, ok := s.NextPair()
		if !ok {
			t.Fatalf("Expected a pair on iteration %d", i)
		}
		if pair.Start.EquipmentID == pair.End.EquipmentID {
			t.Fatal("Pair must come from distinct equipment")
		}
		dist := pair.Start.NodeID - pair.End.NodeID
		if dist < 0 {
			dist = -dist
		}
		if dist < bias.MinNodeDistance {
			t.Fatalf("Pair distance %d below minimum %d", dist, bias.MinNodeDistance)
		}
	}
}

func TestNextPair_EmptyUniverse(t *testing.T) {
	s := NewPairSampler(NewSamplingUniverse(nil, nil), nil, DefaultBiasConfig(), 1, nil)
	if _, ok := s.NextPair(); ok {
		t.Fatal("Expected no pair from an empty universe")
	}
}

// TestNextPair_MinDistanceBlocksThenRelaxes verifies that an unsatisfiable
// minimum distance produces the plateau signal and that lowering it via
// SetMinDistance makes the pair available again.
func TestNextPair_MinDistanceBlocksThenRelaxes(t *testing.T) {
	u := twoEquipmentUniverse(10, 12)
	bias := DefaultBiasConfig()
	bias.MinNodeDistance = 50
	s := NewPairSampler(u, nil, bias, 1, nil)

	if _, ok := s.NextPair(); ok {
		t.Fatal("Expected no pair while the distance bound is unsatisfiable")
	}

	s.SetMinDistance(2)
	if _, ok := s.NextPair(); !ok {
		t.Fatal("Expected a pair after relaxing the distance bound")
	}
}

func TestNextPair_InterToolsetNeedsTwoToolsets(t *testing.T) {
	bias := DefaultBiasConfig()
	bias.InterToolset = true
	s := NewPairSampler(twoEquipmentUniverse(10, 200), nil, bias, 1, nil)

	if _, ok := s.NextPair(); ok {
		t.Fatal("Inter-toolset sampling over one toolset must yield no pair")
	}
}

func TestNextPair_InterToolset(t *testing.T) {
	equipment := []network.Equipment{
		{ID: 1, Toolset: "TS01"},
		{ID: 2, Toolset: "TS02"},
	}
	pocs := []network.PoC{
		{ID: 11, EquipmentID: 1, NodeID: 10},
		{ID: 22, EquipmentID: 2, NodeID: 500},
	}
	bias := DefaultBiasConfig()
	bias.InterToolset = true
	s := NewPairSampler(NewSamplingUniverse(equipment, pocs), nil, bias, 1, nil)

	pair, ok := s.NextPair()
	if !ok {
		t.Fatal("Expected an inter-toolset pair")
	}
	if pair.Start.EquipmentID == pair.End.EquipmentID {
		t.Error("Inter-toolset pair must span distinct equipment")
	}
}

// TestNextPair_InterToolsetCountsToolsetAttempts verifies that the
// per-toolset attempt cap binds across toolsets too: every inter-toolset pick
// is counted and no counter passes the cap.
func TestNextPair_InterToolsetCountsToolsetAttempts(t *testing.T) {
	equipment := []network.Equipment{
		{ID: 1, Toolset: "TS01"},
		{ID: 2, Toolset: "TS02"},
		{ID: 3, Toolset: "TS03"},
	}
	pocs := []network.PoC{
		{ID: 11, EquipmentID: 1, NodeID: 10},
		{ID: 22, EquipmentID: 2, NodeID: 500},
		{ID: 33, EquipmentID: 3, NodeID: 900},
	}
	bias := DefaultBiasConfig()
	bias.InterToolset = true
	s := NewPairSampler(NewSamplingUniverse(equipment, pocs), nil, bias, 1, nil)

	for i := 0; i < 10; i++ {
		if _, ok := s.NextPair(); !ok {
			t.Fatalf("Expected a pair on iteration %d", i)
		}
	}

	if len(s.toolsetAttempts) == 0 {
		t.Fatal("Inter-toolset sampling must count per-toolset attempts")
	}
	for name, n := range s.toolsetAttempts {
		if n > bias.MaxAttemptsPerToolset {
			t.Errorf("Toolset %s attempts %d exceed cap %d", name, n, bias.MaxAttemptsPerToolset)
		}
	}
}

// TestStrategy_SwitchesAtThreshold verifies that the sampler moves to
// coverage-guided selection once combined coverage passes the threshold.
func TestStrategy_SwitchesAtThreshold(t *testing.T) {
	nodes := make([]network.Node, 10)
	for i := range nodes {
		nodes[i] = network.Node{ID: int64(i + 1)}
	}
	links := []network.Link{
		{ID: 101, StartNodeID: 1, EndNodeID: 2},
		{ID: 102, StartNodeID: 2, EndNodeID: 3},
	}
	nu, err := network.NewUniverse(nodes, links)
	if err != nil {
		t.Fatalf("NewUniverse failed: %v", err)
	}
	tracker := coverage.NewTracker(nu)

	s := NewPairSampler(twoEquipmentUniverse(1, 100), tracker, DefaultBiasConfig(), 1, nil)
	if got := s.Strategy(); got != StrategyRandom {
		t.Errorf("Strategy with zero coverage = %s, want %s", got, StrategyRandom)
	}

	// Cover 3 of 10 nodes and 2 of 2 links, lifting combined coverage well
	// above the guided threshold.
	p := &paths.Path{
		StartNodeID: 1,
		EndNodeID:   3,
		Records: []paths.LinkRecord{
			{Seq: 0, LinkID: 101, Start: paths.NodeSnapshot{ID: 1}, End: paths.NodeSnapshot{ID: 2}},
			{Seq: 1, LinkID: 102, Start: paths.NodeSnapshot{ID: 2}, End: paths.NodeSnapshot{ID: 3}},
		},
	}
	if _, err := tracker.MarkPath(p); err != nil {
		t.Fatalf("MarkPath failed: %v", err)
	}

	if got := s.Strategy(); got != StrategyGuided {
		t.Errorf("Strategy above threshold = %s, want %s", got, StrategyGuided)
	}
	if _, ok := s.NextPair(); !ok {
		t.Fatal("Guided sampling should still produce a pair")
	}
}

func TestResetCounters(t *testing.T) {
	s := NewPairSampler(twoEquipmentUniverse(10, 200), nil, DefaultBiasConfig(), 1, nil)
	for i := 0; i < 5; i++ {
		if _, ok := s.NextPair(); !ok {
			t.Fatalf("Expected a pair on iteration %d", i)
		}
	}
	s.ResetCounters()
	if len(s.eqAttempts) != 0 || len(s.pocAttempts) != 0 || len(s.toolsetAttempts) != 0 {
		t.Error("ResetCounters must clear all attempt counters")
	}
}
