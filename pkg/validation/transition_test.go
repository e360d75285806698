package validation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTransitionTable_Allows(t *testing.T) {
	table := NewTransitionTable(map[int64][]int64{
		11: {12, 13},
		12: {11},
	})

	cases := []struct {
		from, to int64
		want     bool
	}{
		{11, 12, true},
		{11, 13, true},
		{12, 11, true},
		{13, 11, false},
		{11, 14, false},
		{99, 100, false},
		{7, 7, true}, // self-transition is always permitted
	}
	for _, c := range cases {
		if got := table.Allows(c.from, c.to); got != c.want {
			t.Errorf("Allows(%d, %d) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestLoadTransitionTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitions.yaml")
	content := []byte("transitions:\n  11: [12, 13]\n  12: [11]\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	table, err := LoadTransitionTable(path)
	if err != nil {
		t.Fatalf("LoadTransitionTable failed: %v", err)
	}
	if table.Size() != 2 {
		t.Errorf("Size = %d, want 2", table.Size())
	}
	if !table.Allows(11, 13) {
		t.Error("Expected 11 -> 13 to be permitted")
	}
	if table.Allows(13, 12) {
		t.Error("Expected 13 -> 12 to be rejected")
	}
}

func TestLoadTransitionTable_Missing(t *testing.T) {
	if _, err := LoadTransitionTable(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Expected an error for a missing table file")
	}
}

func TestParseTransitionTable_Invalid(t *testing.T) {
	if _, err := ParseTransitionTable([]byte("transitions: [not, a, map]")); err == nil {
		t.Fatal("Expected an error for malformed YAML")
	}
}
