// Package paths defines the ordered link-record representation of a
// discovered path and the finder interface the sampling loop consumes. All
// node attributes needed downstream are resolved onto the records at build
// time, so validation and coverage accounting never go back to the store.
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NodeSnapshot carries the classification attributes of a path node needed
// for validation, captured at path build time.
type NodeSnapshot struct {
	ID                 int64
	DataCode           int64
	UtilityNo          int64 // 0 when the node carries no utility
	IsPoC              bool  // equipment point of contact
	IsEquipmentLogical bool  // reserved classification separating utility segments
	IsUsed             bool
	Markers            string
	Reference          string
}

// LinkRecord is one traversal step of a path. Start and End are oriented in
// traversal order; Reversed records whether that orientation runs against
// the link's stored direction.
type LinkRecord struct {
	Seq      int
	LinkID   int64
	Start    NodeSnapshot
	End      NodeSnapshot
	Reversed bool
	LengthMM float64
	Cost     float64
}

// Path is an ordered sequence of link records between two points of contact.
// A path is read-only after construction and is not assumed well formed: the
// validator checks continuity rather than trusting it.
type Path struct {
	StartNodeID int64
	EndNodeID   int64

	StartPoCID       int64
	EndPoCID         int64
	StartEquipmentID int64
	EndEquipmentID   int64

	Records []LinkRecord

	TotalCost     float64
	TotalLengthMM float64
}

// NodeIDs returns the ids of all nodes touched by the path, deduplicated,
// in first-appearance order. Both endpoints of every record are included so
// coverage accounting stays correct even for discontinuous paths.
func (p *Path) NodeIDs() []int64 {
	seen := make(map[int64]struct{}, len(p.Records)+1)
	ids := make([]int64, 0, len(p.Records)+1)
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, r := range p.Records {
		add(r.Start.ID)
		add(r.End.ID)
	}
	return ids
}

// LinkIDs returns the ids of all links traversed, deduplicated, in
// first-appearance order.
func (p *Path) LinkIDs() []int64 {
	seen := make(map[int64]struct{}, len(p.Records))
	ids := make([]int64, 0, len(p.Records))
	for _, r := range p.Records {
		if _, ok := seen[r.LinkID]; !ok {
			seen[r.LinkID] = struct{}{}
			ids = append(ids, r.LinkID)
		}
	}
	return ids
}

// NodeCount returns the number of distinct nodes on the path.
func (p *Path) NodeCount() int { return len(p.NodeIDs()) }

// LinkCount returns the number of records on the path.
func (p *Path) LinkCount() int { return len(p.Records) }

// Hash returns a stable digest of the traversed node and link sequence,
// used to count unique paths across a run.
func (p *Path) Hash() string {
	h := sha256.New()
	for _, r := range p.Records {
		fmt.Fprintf(h, "%d:%d:%d;", r.LinkID, r.Start.ID, r.End.ID)
	}
	return hex.EncodeToString(h.Sum(nil))
}
