package validation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TransitionTable maps a utility code to the set of utility codes it may
// legitimately transition into across an equipment-logical boundary. The
// table is built once and treated as immutable for the life of a run.
type TransitionTable struct {
	allowed map[int64]map[int64]struct{}
}

// NewTransitionTable builds a table from explicit from->to pairs.
func NewTransitionTable(pairs map[int64][]int64) *TransitionTable {
	t := &TransitionTable{allowed: make(map[int64]map[int64]struct{}, len(pairs))}
	for from, tos := range pairs {
		set := make(map[int64]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
		}
		t.allowed[from] = set
	}
	return t
}

// EmptyTransitionTable permits no transitions at all.
func EmptyTransitionTable() *TransitionTable {
	return &TransitionTable{allowed: map[int64]map[int64]struct{}{}}
}

// Allows reports whether from may transition into to. A utility transitioning
// into itself is always allowed.
func (t *TransitionTable) Allows(from, to int64) bool {
	if from == to {
		return true
	}
	set, ok := t.allowed[from]
	if !ok {
		return false
	}
	_, ok = set[to]
	return ok
}

// Size returns the number of source utilities with at least one permitted
// target.
func (t *TransitionTable) Size() int {
	return len(t.allowed)
}

type transitionFile struct {
	Transitions map[int64][]int64 `yaml:"transitions"`
}

// LoadTransitionTable reads a YAML transition table:
//
//	transitions:
//	  11: [12, 13]
//	  12: [11]
func LoadTransitionTable(path string) (*TransitionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transition table %s: %w", path, err)
	}
	return ParseTransitionTable(data)
}

// ParseTransitionTable parses YAML transition table bytes.
func ParseTransitionTable(data []byte) (*TransitionTable, error) {
	var f transitionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse transition table: %w", err)
	}
	return NewTransitionTable(f.Transitions), nil
}
