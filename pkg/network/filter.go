package network

import (
	"fmt"
	"sort"
	"strings"
)

// Filter selects the bounded scope for one sampling run. Zero values mean
// "not constrained by this attribute". A Filter with no constraints at all is
// rejected by universe builders to prevent an accidental full-network scope.
type Filter struct {
	FabNo       int64
	ModelNo     int64
	PhaseNo     int64
	Toolsets    []string
	E2EGroupNos []int64
}

// IsEmpty reports whether the filter carries no constraint at all.
func (f Filter) IsEmpty() bool {
	return f.FabNo == 0 && f.ModelNo == 0 && f.PhaseNo == 0 &&
		len(f.Toolsets) == 0 && len(f.E2EGroupNos) == 0
}

// Normalize returns a canonical string representation of the filter,
// independent of slice ordering. Cache keys are derived from it.
func (f Filter) Normalize() string {
	toolsets := append([]string(nil), f.Toolsets...)
	sort.Strings(toolsets)

	groups := append([]int64(nil), f.E2EGroupNos...)
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })

	groupStrs := make([]string, len(groups))
	for i, g := range groups {
		groupStrs[i] = fmt.Sprintf("%d", g)
	}

	parts := []string{
		fmt.Sprintf("fab:%d", f.FabNo),
		fmt.Sprintf("model:%d", f.ModelNo),
		fmt.Sprintf("phase:%d", f.PhaseNo),
		"toolsets:" + strings.Join(toolsets, ","),
		"e2e:" + strings.Join(groupStrs, ","),
	}
	return strings.Join(parts, "|")
}
