package validation

import (
	"fmt"

	"github.com/flowgrid/pathcover/pkg/paths"
)

// Config controls validator behavior that the source data leaves ambiguous.
type Config struct {
	// PoCMismatchSeverity is the severity assigned when a point-of-contact
	// node disagrees with its segment's expected utility.
	PoCMismatchSeverity Severity
}

// DefaultConfig returns the validator defaults.
func DefaultConfig() Config {
	return Config{PoCMismatchSeverity: SeverityWarning}
}

// Validator checks a path in a single traversal of its ordered link records.
// It performs no I/O: every rule evaluates against data already resolved onto
// the path's node and link snapshots. Findings are accumulated across the
// whole traversal; only a path with no records short-circuits evaluation.
type Validator struct {
	table *TransitionTable
	cfg   Config
}

// NewValidator constructs a validator around an immutable transition table.
func NewValidator(table *TransitionTable, cfg Config) *Validator {
	if table == nil {
		table = EmptyTransitionTable()
	}
	return &Validator{table: table, cfg: cfg}
}

// segment is a maximal run of nodes between equipment-logical boundaries.
type segment struct {
	nodes []segNode
}

type segNode struct {
	pos  int
	snap paths.NodeSnapshot
}

// Validate runs every rule family over the path and returns all findings.
func (v *Validator) Validate(p *paths.Path) []Finding {
	if p == nil || len(p.Records) == 0 {
		return []Finding{{
			RuleCode:   RuleEmptyPath,
			Severity:   SeverityCritical,
			Scope:      ScopeConnectivity,
			Family:     FamilyConnectivity,
			ObjectType: ObjectPath,
			Message:    "path has no link records",
		}}
	}

	var findings []Finding

	seenLinks := make(map[int64]int, len(p.Records))
	nodeCount := make(map[int64]int, len(p.Records)+1)
	var revisited []int64

	// The node sequence is the start of the first record followed by the end
	// of every record. Utility state tracks the previous regular utility so
	// direct changes and orphans are caught as the sequence unfolds.
	seq := make([]paths.NodeSnapshot, 0, len(p.Records)+1)

	var (
		segments []segment
		current  segment
	)

	pushNode := func(snap paths.NodeSnapshot) {
		pos := len(seq)
		seq = append(seq, snap)
		nodeCount[snap.ID]++
		if nodeCount[snap.ID] == 2 {
			revisited = append(revisited, snap.ID)
		}

		if snap.IsEquipmentLogical {
			if len(current.nodes) > 0 {
				segments = append(segments, current)
				current = segment{}
			}
			return
		}
		current.nodes = append(current.nodes, segNode{pos: pos, snap: snap})
	}

	for i, rec := range p.Records {
		if i == 0 {
			pushNode(rec.Start)
		} else if prev := p.Records[i-1]; prev.End.ID != rec.Start.ID {
			findings = append(findings, Finding{
				RuleCode:   RuleBrokenContinuity,
				Severity:   SeverityCritical,
				Scope:      ScopeConnectivity,
				Family:     FamilyConnectivity,
				ObjectType: ObjectLink,
				ObjectID:   rec.LinkID,
				Message:    fmt.Sprintf("link %d starts at node %d but previous link ends at node %d", rec.LinkID, rec.Start.ID, prev.End.ID),
				Context: map[string]any{
					"seq":           rec.Seq,
					"prev_end_node": prev.End.ID,
					"start_node":    rec.Start.ID,
				},
			})
			// The sequence continues from the disconnected start so later
			// rules still see every node.
			pushNode(rec.Start)
		}
		pushNode(rec.End)

		if rec.Start.ID == 0 || rec.End.ID == 0 {
			findings = append(findings, Finding{
				RuleCode:   RuleDanglingLink,
				Severity:   SeverityCritical,
				Scope:      ScopeConnectivity,
				Family:     FamilyConnectivity,
				ObjectType: ObjectLink,
				ObjectID:   rec.LinkID,
				Message:    fmt.Sprintf("link %d is missing a resolved endpoint node", rec.LinkID),
			})
		}

		if first, dup := seenLinks[rec.LinkID]; dup {
			findings = append(findings, Finding{
				RuleCode:   RuleDuplicateLink,
				Severity:   SeverityError,
				Scope:      ScopeConnectivity,
				Family:     FamilyConnectivity,
				ObjectType: ObjectLink,
				ObjectID:   rec.LinkID,
				Message:    fmt.Sprintf("link %d appears more than once in the path", rec.LinkID),
				Context:    map[string]any{"first_seq": first, "dup_seq": rec.Seq},
			})
		} else {
			seenLinks[rec.LinkID] = rec.Seq
		}

		// Direct utility change between two regular nodes. A change is only
		// legitimate across an equipment-logical boundary, so any in-link
		// change between utility-bearing regular nodes is invalid regardless
		// of the transition table.
		if rec.Start.UtilityNo != 0 && rec.End.UtilityNo != 0 &&
			rec.Start.UtilityNo != rec.End.UtilityNo &&
			!rec.Start.IsEquipmentLogical && !rec.End.IsEquipmentLogical {
			findings = append(findings, Finding{
				RuleCode:   RuleInvalidTransition,
				Severity:   SeverityCritical,
				Scope:      ScopeFlow,
				Family:     FamilyUtility,
				ObjectType: ObjectLink,
				ObjectID:   rec.LinkID,
				Message:    fmt.Sprintf("utilities %d and %d connect directly on link %d without equipment separation", rec.Start.UtilityNo, rec.End.UtilityNo, rec.LinkID),
				Context: map[string]any{
					"from_utility": rec.Start.UtilityNo,
					"to_utility":   rec.End.UtilityNo,
					"start_node":   rec.Start.ID,
					"end_node":     rec.End.ID,
				},
			})
		}
	}
	if len(current.nodes) > 0 {
		segments = append(segments, current)
	}

	// A shortest path never revisits a node; a repeat means the link
	// sequence loops back through it.
	for _, id := range revisited {
		findings = append(findings, Finding{
			RuleCode:   RuleRevisitedNode,
			Severity:   SeverityWarning,
			Scope:      ScopeConnectivity,
			Family:     FamilyStructure,
			ObjectType: ObjectNode,
			ObjectID:   id,
			Message:    fmt.Sprintf("node %d appears %d times in the path (potential cycle)", id, nodeCount[id]),
			Context:    map[string]any{"occurrences": nodeCount[id]},
		})
	}

	findings = append(findings, v.checkEndpoints(p, nodeCount)...)
	findings = append(findings, v.checkSegments(segments)...)
	findings = append(findings, checkOrphans(seq)...)
	findings = append(findings, v.checkPoCs(p)...)

	return findings
}

// checkEndpoints verifies the declared start and end nodes appear in the
// traversed node set.
func (v *Validator) checkEndpoints(p *paths.Path, nodeCount map[int64]int) []Finding {
	var findings []Finding
	for _, endpoint := range []struct {
		label string
		id    int64
	}{
		{"start", p.StartNodeID},
		{"end", p.EndNodeID},
	} {
		if nodeCount[endpoint.id] == 0 {
			findings = append(findings, Finding{
				RuleCode:   RuleEndpointMissing,
				Severity:   SeverityCritical,
				Scope:      ScopeConnectivity,
				Family:     FamilyConnectivity,
				ObjectType: ObjectNode,
				ObjectID:   endpoint.id,
				Message:    fmt.Sprintf("declared %s node %d does not appear in the path", endpoint.label, endpoint.id),
			})
		}
	}
	return findings
}

// checkSegments elects each segment's expected utility and reports nodes that
// disagree, nodes missing a utility, and boundary transitions the table does
// not permit.
func (v *Validator) checkSegments(segments []segment) []Finding {
	var findings []Finding
	prevExpected := int64(0)

	for _, seg := range segments {
		expected := electExpected(seg)

		// Boundary transition between consecutive segments. Both segments
		// sit on either side of at least one equipment-logical node, so the
		// table is the remaining condition.
		if prevExpected != 0 && expected != 0 && !v.table.Allows(prevExpected, expected) {
			boundary := seg.nodes[0].snap
			findings = append(findings, Finding{
				RuleCode:   RuleInvalidTransition,
				Severity:   SeverityWarning,
				Scope:      ScopeFlow,
				Family:     FamilyUtility,
				ObjectType: ObjectNode,
				ObjectID:   boundary.ID,
				Message:    fmt.Sprintf("transition from utility %d to %d is not permitted", prevExpected, expected),
				Context: map[string]any{
					"from_utility": prevExpected,
					"to_utility":   expected,
				},
			})
		}
		if expected != 0 {
			prevExpected = expected
		}

		for _, n := range seg.nodes {
			snap := n.snap
			switch {
			case snap.UtilityNo == 0:
				if snap.IsPoC && snap.IsUsed {
					findings = append(findings, Finding{
						RuleCode:   RulePoCNoUtility,
						Severity:   SeverityCritical,
						Scope:      ScopeFlow,
						Family:     FamilyPoC,
						ObjectType: ObjectNode,
						ObjectID:   snap.ID,
						Message:    fmt.Sprintf("used point-of-contact node %d has no utility assigned", snap.ID),
					})
				} else if !snap.IsPoC {
					findings = append(findings, Finding{
						RuleCode:   RuleMissingUtility,
						Severity:   SeverityError,
						Scope:      ScopeFlow,
						Family:     FamilyUtility,
						ObjectType: ObjectNode,
						ObjectID:   snap.ID,
						Message:    fmt.Sprintf("node %d carries no utility code", snap.ID),
					})
				}
			case expected != 0 && snap.UtilityNo != expected:
				sev := SeverityError
				family := FamilyUtility
				if snap.IsPoC {
					sev = v.cfg.PoCMismatchSeverity
					family = FamilyPoC
				}
				findings = append(findings, Finding{
					RuleCode:   RuleUtilityMismatch,
					Severity:   sev,
					Scope:      ScopeFlow,
					Family:     family,
					ObjectType: ObjectNode,
					ObjectID:   snap.ID,
					Message:    fmt.Sprintf("node %d has utility %d, segment expects %d", snap.ID, snap.UtilityNo, expected),
					Context: map[string]any{
						"expected_utility": expected,
						"actual_utility":   snap.UtilityNo,
						"position":         n.pos,
					},
				})
			}
		}
	}
	return findings
}

// electExpected picks the segment's expected utility. Point-of-contact nodes
// take priority; the first utility-bearing PoC wins, otherwise the first
// utility-bearing node.
func electExpected(seg segment) int64 {
	var first int64
	for _, n := range seg.nodes {
		if n.snap.UtilityNo == 0 {
			continue
		}
		if n.snap.IsPoC {
			return n.snap.UtilityNo
		}
		if first == 0 {
			first = n.snap.UtilityNo
		}
	}
	return first
}

// checkOrphans flags a utility-bearing node whose two neighbors agree on a
// different utility. A single divergent node usually indicates a data entry
// error rather than a real segment change.
func checkOrphans(seq []paths.NodeSnapshot) []Finding {
	var findings []Finding
	for i := 1; i+1 < len(seq); i++ {
		cur, prev, next := seq[i], seq[i-1], seq[i+1]
		if cur.UtilityNo != 0 && !cur.IsEquipmentLogical &&
			cur.UtilityNo != prev.UtilityNo && cur.UtilityNo != next.UtilityNo &&
			prev.UtilityNo == next.UtilityNo && prev.UtilityNo != 0 {
			findings = append(findings, Finding{
				RuleCode:   RuleOrphanedUtility,
				Severity:   SeverityWarning,
				Scope:      ScopeQA,
				Family:     FamilyUtility,
				ObjectType: ObjectNode,
				ObjectID:   cur.ID,
				Message:    fmt.Sprintf("node %d carries isolated utility %d between nodes of utility %d", cur.ID, cur.UtilityNo, prev.UtilityNo),
				Context: map[string]any{
					"node_utility":        cur.UtilityNo,
					"surrounding_utility": prev.UtilityNo,
					"position":            i,
				},
			})
		}
	}
	return findings
}

// checkPoCs runs the QA family over the terminal snapshots.
func (v *Validator) checkPoCs(p *paths.Path) []Finding {
	var findings []Finding
	terminals := []paths.NodeSnapshot{p.Records[0].Start, p.Records[len(p.Records)-1].End}
	for _, snap := range terminals {
		if !snap.IsPoC {
			continue
		}
		if !snap.IsUsed {
			findings = append(findings, Finding{
				RuleCode:   RulePoCNotUsed,
				Severity:   SeverityWarning,
				Scope:      ScopeQA,
				Family:     FamilyPoC,
				ObjectType: ObjectNode,
				ObjectID:   snap.ID,
				Message:    fmt.Sprintf("path terminates at point-of-contact node %d which is not marked in use", snap.ID),
			})
		}
		if snap.Reference == "" {
			findings = append(findings, Finding{
				RuleCode:   RulePoCNoReference,
				Severity:   SeverityInfo,
				Scope:      ScopeQA,
				Family:     FamilyPoC,
				ObjectType: ObjectNode,
				ObjectID:   snap.ID,
				Message:    fmt.Sprintf("point-of-contact node %d has no reference designator", snap.ID),
			})
		}
	}
	return findings
}

// UnknownElementFinding reports a path element that is absent from the
// declared universe. The element cannot be validated, so the finding stands
// in for the whole attempt.
func UnknownElementFinding(objectType ObjectType, id int64) Finding {
	return Finding{
		RuleCode:   RuleUnknownElement,
		Severity:   SeverityCritical,
		Scope:      ScopeConnectivity,
		Family:     FamilyConnectivity,
		ObjectType: objectType,
		ObjectID:   id,
		Message:    fmt.Sprintf("%s %d is not part of the declared universe", objectType, id),
	}
}
