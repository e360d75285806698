package sampling

import (
	"sort"

	"github.com/flowgrid/pathcover/pkg/network"
)

// EquipmentPoCs is one piece of equipment together with its sampleable
// points of contact.
type EquipmentPoCs struct {
	Equipment network.Equipment
	PoCs      []network.PoC
}

// Toolset is a named group of equipment the sampler draws pairs from.
type Toolset struct {
	Name      string
	Equipment []*EquipmentPoCs
}

// PoCCount returns the number of sampleable PoCs across the toolset.
func (t *Toolset) PoCCount() int {
	n := 0
	for _, eq := range t.Equipment {
		n += len(eq.PoCs)
	}
	return n
}

// SamplingUniverse is the equipment/PoC view of a run's scope, grouped by
// toolset. It is built once and read-only during sampling.
type SamplingUniverse struct {
	Toolsets []*Toolset
}

// NewSamplingUniverse groups equipment and PoCs by toolset. PoCs whose
// equipment is unknown are dropped; equipment with no PoCs is kept so the
// toolset inventory stays complete, but it can never be sampled.
func NewSamplingUniverse(equipment []network.Equipment, pocs []network.PoC) *SamplingUniverse {
	byEquipment := make(map[int64]*EquipmentPoCs, len(equipment))
	byToolset := make(map[string]*Toolset)

	for _, eq := range equipment {
		entry := &EquipmentPoCs{Equipment: eq}
		byEquipment[eq.ID] = entry

		ts, ok := byToolset[eq.Toolset]
		if !ok {
			ts = &Toolset{Name: eq.Toolset}
			byToolset[eq.Toolset] = ts
		}
		ts.Equipment = append(ts.Equipment, entry)
	}

	for _, poc := range pocs {
		if entry, ok := byEquipment[poc.EquipmentID]; ok {
			entry.PoCs = append(entry.PoCs, poc)
		}
	}

	u := &SamplingUniverse{Toolsets: make([]*Toolset, 0, len(byToolset))}
	for _, ts := range byToolset {
		u.Toolsets = append(u.Toolsets, ts)
	}
	sort.Slice(u.Toolsets, func(i, j int) bool {
		return u.Toolsets[i].Name < u.Toolsets[j].Name
	})
	return u
}

// EquipmentCount returns the total equipment count across all toolsets.
func (u *SamplingUniverse) EquipmentCount() int {
	n := 0
	for _, ts := range u.Toolsets {
		n += len(ts.Equipment)
	}
	return n
}

// PoCCount returns the total PoC count across all toolsets.
func (u *SamplingUniverse) PoCCount() int {
	n := 0
	for _, ts := range u.Toolsets {
		n += ts.PoCCount()
	}
	return n
}

// Empty reports whether the universe has nothing to sample from.
func (u *SamplingUniverse) Empty() bool {
	return u.PoCCount() == 0
}

// Pair is one sampled start/end PoC pair belonging to distinct equipment.
type Pair struct {
	Start network.PoC
	End   network.PoC
}
