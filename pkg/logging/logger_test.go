package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"invalid", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, line)
	}
	return entry
}

func TestJSONLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("path found",
		RunID("run-1"),
		Attempt(7),
		Coverage(0.42),
	)

	entry := decodeLine(t, buf.String())
	if entry["level"] != "INFO" || entry["msg"] != "path found" {
		t.Fatalf("entry = %v", entry)
	}

	fields, ok := entry["fields"].(map[string]any)
	if !ok {
		t.Fatalf("fields missing: %v", entry)
	}
	if fields["run_id"] != "run-1" {
		t.Errorf("run_id = %v", fields["run_id"])
	}
	if fields["attempt"] != float64(7) {
		t.Errorf("attempt = %v", fields["attempt"])
	}
	if fields["coverage"] != 0.42 {
		t.Errorf("coverage = %v", fields["coverage"])
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}

	logger.SetLevel(DebugLevel)
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatal("debug line missing after SetLevel")
	}
}

func TestJSONLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewJSONLogger(&buf, InfoLevel)
	child := base.With(Component("sampler"), RunID("run-9"))

	child.Info("pair selected", NodeID(101))

	entry := decodeLine(t, buf.String())
	fields := entry["fields"].(map[string]any)
	if fields["component"] != "sampler" || fields["run_id"] != "run-9" {
		t.Fatalf("inherited fields lost: %v", fields)
	}
	if fields["node_id"] != float64(101) {
		t.Fatalf("call-site field lost: %v", fields)
	}
}

func TestFieldConstructors(t *testing.T) {
	if f := String("k", "v"); f.Key != "k" || f.Value != "v" {
		t.Errorf("String() = %+v", f)
	}
	if f := Int64("id", 42); f.Key != "id" || f.Value != int64(42) {
		t.Errorf("Int64() = %+v", f)
	}
	if f := Bool("used", true); f.Key != "used" || f.Value != true {
		t.Errorf("Bool() = %+v", f)
	}
	if f := Duration("elapsed", time.Second); f.Value != time.Second.String() {
		t.Errorf("Duration() = %+v", f)
	}

	err := errors.New("boom")
	if f := Error(err); f.Key != "error" || f.Value != "boom" {
		t.Errorf("Error() = %+v", f)
	}
	if f := Error(nil); f.Value != nil {
		t.Errorf("Error(nil) = %+v", f)
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	timer := StartTimer(logger, "universe build", Component("store"))
	timer.End()

	entry := decodeLine(t, buf.String())
	if entry["msg"] != "universe build" {
		t.Fatalf("entry = %v", entry)
	}
	fields := entry["fields"].(map[string]any)
	if _, ok := fields["latency"]; !ok {
		t.Fatalf("latency field missing: %v", fields)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("discarded", String("k", "v"))
	if child := logger.With(Component("x")); child == nil {
		t.Fatal("With returned nil")
	}
}
