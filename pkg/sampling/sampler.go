package sampling

import (
	"math/rand"

	"github.com/flowgrid/pathcover/pkg/coverage"
	"github.com/flowgrid/pathcover/pkg/logging"
	"github.com/flowgrid/pathcover/pkg/network"
)

// Selection strategies reported to metrics.
const (
	StrategyRandom = "random"
	StrategyGuided = "guided"
)

// guidedThreshold is the combined coverage fraction above which the sampler
// switches from pure random to coverage-guided selection. Below it there is
// not enough coverage to guide away from.
const guidedThreshold = 0.10

// maxInternalTries bounds the candidate search inside one NextPair call.
const maxInternalTries = 100

// PairSampler draws start/end PoC pairs from a sampling universe under the
// configured bias rules. A nil result is not an error: it signals that no
// candidate pair satisfies the constraints, which the orchestrator uses to
// drive plateau and relaxation decisions.
//
// Not safe for concurrent use.
type PairSampler struct {
	universe *SamplingUniverse
	cov      *coverage.Tracker
	bias     BiasConfig
	rng      *rand.Rand
	log      logging.Logger

	eqAttempts      map[int64]int
	pocAttempts     map[int64]int
	toolsetAttempts map[string]int
}

// NewPairSampler builds a sampler over the universe. The coverage tracker may
// be nil, which disables coverage-guided selection.
func NewPairSampler(u *SamplingUniverse, cov *coverage.Tracker, bias BiasConfig, seed int64, log logging.Logger) *PairSampler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PairSampler{
		universe:        u,
		cov:             cov,
		bias:            bias,
		rng:             rand.New(rand.NewSource(seed)),
		log:             log.With(logging.Component("sampler")),
		eqAttempts:      make(map[int64]int),
		pocAttempts:     make(map[int64]int),
		toolsetAttempts: make(map[string]int),
	}
}

// Strategy returns the selection strategy the sampler would use right now.
func (s *PairSampler) Strategy() string {
	if s.cov != nil && s.cov.CombinedPct() > guidedThreshold {
		return StrategyGuided
	}
	return StrategyRandom
}

// MinDistance returns the currently enforced minimum node-id distance.
func (s *PairSampler) MinDistance() int64 {
	return s.bias.MinNodeDistance
}

// SetMinDistance lowers (or raises) the minimum node-id distance. Used by the
// orchestrator's relaxation step.
func (s *PairSampler) SetMinDistance(d int64) {
	s.bias.MinNodeDistance = d
	s.log.Debug("min distance updated", logging.Int64("min_distance", d))
}

// ResetCounters clears all per-equipment, per-PoC and per-toolset attempt
// counters.
func (s *PairSampler) ResetCounters() {
	s.eqAttempts = make(map[int64]int)
	s.pocAttempts = make(map[int64]int)
	s.toolsetAttempts = make(map[string]int)
}

// NextPair returns the next start/end pair, or false when no candidate pair
// satisfies the bias constraints within the internal try budget.
func (s *PairSampler) NextPair() (*Pair, bool) {
	if s.universe == nil || s.universe.Empty() {
		return nil, false
	}
	guided := s.Strategy() == StrategyGuided

	for try := 0; try < maxInternalTries; try++ {
		var pair *Pair
		if s.bias.InterToolset {
			pair = s.sampleInterToolset(guided)
		} else {
			pair = s.sampleIntraToolset(guided)
		}
		if pair == nil {
			continue
		}
		if s.acceptable(pair) {
			return pair, true
		}
	}
	return nil, false
}

// acceptable applies the pair-level bias rules.
func (s *PairSampler) acceptable(p *Pair) bool {
	if p.Start.ID == p.End.ID {
		return false
	}
	if p.Start.EquipmentID == p.End.EquipmentID {
		return false
	}
	dist := p.Start.NodeID - p.End.NodeID
	if dist < 0 {
		dist = -dist
	}
	return dist >= s.bias.MinNodeDistance
}

func (s *PairSampler) sampleIntraToolset(guided bool) *Pair {
	ts := s.pickToolset(guided)
	if ts == nil || len(ts.Equipment) < 2 {
		return nil
	}

	eq1, eq2 := s.pickEquipmentPair(ts.Equipment, guided)
	if eq1 == nil || eq2 == nil {
		return nil
	}

	start := s.pickPoC(eq1, guided)
	end := s.pickPoC(eq2, guided)
	if start == nil || end == nil {
		return nil
	}
	return &Pair{Start: *start, End: *end}
}

func (s *PairSampler) sampleInterToolset(guided bool) *Pair {
	if len(s.universe.Toolsets) < 2 {
		return nil
	}
	ts1 := s.pickToolset(guided)
	if ts1 == nil {
		return nil
	}
	others := make([]*Toolset, 0, len(s.universe.Toolsets)-1)
	for _, ts := range s.universe.Toolsets {
		if ts.Name != ts1.Name {
			others = append(others, ts)
		}
	}
	ts2 := s.pickToolsetFrom(others, guided)
	if ts2 == nil {
		return nil
	}

	eq1 := s.pickEquipment(ts1.Equipment, guided)
	eq2 := s.pickEquipment(ts2.Equipment, guided)
	if eq1 == nil || eq2 == nil {
		return nil
	}

	start := s.pickPoC(eq1, guided)
	end := s.pickPoC(eq2, guided)
	if start == nil || end == nil {
		return nil
	}
	return &Pair{Start: *start, End: *end}
}

// pickToolset selects a toolset under the per-toolset attempt cap, resetting
// counters when every toolset is exhausted. Guided mode weights toolsets by
// how many of their PoC nodes are still uncovered.
func (s *PairSampler) pickToolset(guided bool) *Toolset {
	return s.pickToolsetFrom(s.universe.Toolsets, guided)
}

// pickToolsetFrom applies the same cap, reset and gap weighting over an
// arbitrary toolset pool.
func (s *PairSampler) pickToolsetFrom(pool []*Toolset, guided bool) *Toolset {
	candidates := make([]*Toolset, 0, len(pool))
	for _, ts := range pool {
		if s.toolsetAttempts[ts.Name] < s.bias.MaxAttemptsPerToolset {
			candidates = append(candidates, ts)
		}
	}
	if len(candidates) == 0 {
		for _, ts := range pool {
			s.toolsetAttempts[ts.Name] = 0
		}
		candidates = pool
	}
	if len(candidates) == 0 {
		return nil
	}

	var chosen *Toolset
	if guided {
		chosen = s.pickToolsetByGap(candidates)
	}
	if chosen == nil {
		chosen = candidates[s.rng.Intn(len(candidates))]
	}
	s.toolsetAttempts[chosen.Name]++
	return chosen
}

// pickToolsetByGap weights toolsets by their count of uncovered PoC nodes.
// Returns nil when every candidate PoC node is already covered.
func (s *PairSampler) pickToolsetByGap(candidates []*Toolset) *Toolset {
	scores := make([]int, len(candidates))
	total := 0
	for i, ts := range candidates {
		for _, eq := range ts.Equipment {
			for _, poc := range eq.PoCs {
				if !s.cov.CoveredNode(poc.NodeID) {
					scores[i]++
				}
			}
		}
		total += scores[i]
	}
	if total == 0 {
		return nil
	}
	pick := s.rng.Intn(total)
	for i, score := range scores {
		if pick < score {
			return candidates[i]
		}
		pick -= score
	}
	return candidates[len(candidates)-1]
}

// pickEquipmentPair selects two distinct pieces of equipment under the
// per-equipment attempt caps with diversity weighting.
func (s *PairSampler) pickEquipmentPair(equipment []*EquipmentPoCs, guided bool) (*EquipmentPoCs, *EquipmentPoCs) {
	eq1 := s.pickEquipment(equipment, guided)
	if eq1 == nil {
		return nil, nil
	}
	remaining := make([]*EquipmentPoCs, 0, len(equipment)-1)
	for _, eq := range equipment {
		if eq.Equipment.ID != eq1.Equipment.ID {
			remaining = append(remaining, eq)
		}
	}
	eq2 := s.pickEquipment(remaining, guided)
	if eq2 == nil {
		return nil, nil
	}
	return eq1, eq2
}

func (s *PairSampler) pickEquipment(equipment []*EquipmentPoCs, guided bool) *EquipmentPoCs {
	if len(equipment) == 0 {
		return nil
	}

	available := make([]*EquipmentPoCs, 0, len(equipment))
	for _, eq := range equipment {
		if s.eqAttempts[eq.Equipment.ID] < s.bias.MaxAttemptsPerEquipment {
			available = append(available, eq)
		}
	}
	if len(available) == 0 {
		// Every candidate is exhausted; reset rather than starve.
		for _, eq := range equipment {
			s.eqAttempts[eq.Equipment.ID] = 0
		}
		available = equipment
	}

	if guided {
		gapped := make([]*EquipmentPoCs, 0, len(available))
		for _, eq := range available {
			for _, poc := range eq.PoCs {
				if !s.cov.CoveredNode(poc.NodeID) {
					gapped = append(gapped, eq)
					break
				}
			}
		}
		if len(gapped) > 0 {
			available = gapped
		}
	}

	weighted := s.applyDiversityWeighting(available)
	chosen := weighted[s.rng.Intn(len(weighted))]
	s.eqAttempts[chosen.Equipment.ID]++
	return chosen
}

// applyDiversityWeighting expands the candidate list so equipment from
// overrepresented categories and phases appears fewer times.
func (s *PairSampler) applyDiversityWeighting(equipment []*EquipmentPoCs) []*EquipmentPoCs {
	if len(equipment) <= 1 {
		return equipment
	}
	categoryCounts := make(map[int64]int)
	phaseCounts := make(map[int64]int)
	for _, eq := range equipment {
		categoryCounts[eq.Equipment.CategoryNo]++
		phaseCounts[eq.Equipment.PhaseNo]++
	}

	weighted := make([]*EquipmentPoCs, 0, len(equipment)*10)
	for _, eq := range equipment {
		weight := 1.0
		if categoryCounts[eq.Equipment.CategoryNo] > 1 {
			weight *= 1.0 - s.bias.CategoryDiversityWeight
		}
		if phaseCounts[eq.Equipment.PhaseNo] > 1 {
			weight *= 1.0 - s.bias.PhaseDiversityWeight
		}
		copies := int(weight * 10)
		if copies < 1 {
			copies = 1
		}
		for i := 0; i < copies; i++ {
			weighted = append(weighted, eq)
		}
	}
	return weighted
}

// pickPoC selects a PoC from the equipment under the per-PoC attempt cap.
// Guided mode prefers PoCs whose node is still uncovered.
func (s *PairSampler) pickPoC(eq *EquipmentPoCs, guided bool) *network.PoC {
	if len(eq.PoCs) == 0 {
		return nil
	}

	available := make([]network.PoC, 0, len(eq.PoCs))
	for _, poc := range eq.PoCs {
		if s.pocAttempts[poc.ID] < s.bias.MaxAttemptsPerEquipment {
			available = append(available, poc)
		}
	}
	if len(available) == 0 {
		for _, poc := range eq.PoCs {
			s.pocAttempts[poc.ID] = 0
		}
		available = eq.PoCs
	}

	if guided {
		gapped := make([]network.PoC, 0, len(available))
		for _, poc := range available {
			if !s.cov.CoveredNode(poc.NodeID) {
				gapped = append(gapped, poc)
			}
		}
		if len(gapped) > 0 {
			available = gapped
		}
	}

	chosen := available[s.rng.Intn(len(available))]
	s.pocAttempts[chosen.ID]++
	return &chosen
}
