package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metric groups are initialized
	if r.AttemptsTotal == nil {
		t.Error("AttemptsTotal not initialized")
	}
	if r.CombinedCoveragePct == nil {
		t.Error("CombinedCoveragePct not initialized")
	}
	if r.FindingsTotal == nil {
		t.Error("FindingsTotal not initialized")
	}
	if r.StoreOperationsTotal == nil {
		t.Error("StoreOperationsTotal not initialized")
	}
	if r.CacheHitsTotal == nil {
		t.Error("CacheHitsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefault(t *testing.T) {
	// Should return the same instance
	r1 := Default()
	r2 := Default()

	if r1 != r2 {
		t.Error("Default() should return the same instance")
	}
}

func TestRecordAttempt(t *testing.T) {
	r := NewRegistry()

	r.RecordAttempt("FOUND")
	r.RecordAttempt("FOUND")
	r.RecordAttempt("NOT_FOUND")

	if got := testutil.ToFloat64(r.AttemptsTotal.WithLabelValues("FOUND")); got != 2 {
		t.Errorf("FOUND attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.AttemptsTotal.WithLabelValues("NOT_FOUND")); got != 1 {
		t.Errorf("NOT_FOUND attempts = %v, want 1", got)
	}
}

func TestUpdateCoverage(t *testing.T) {
	r := NewRegistry()

	r.UpdateCoverage(0.5, 0.25, 0.375)

	if got := testutil.ToFloat64(r.NodeCoveragePct); got != 0.5 {
		t.Errorf("NodeCoveragePct = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(r.CombinedCoveragePct); got != 0.375 {
		t.Errorf("CombinedCoveragePct = %v, want 0.375", got)
	}
}

func TestRecordValidation(t *testing.T) {
	r := NewRegistry()

	r.RecordValidation(2*time.Millisecond, [][2]string{
		{"CRITICAL", "CONNECTIVITY"},
		{"WARNING", "QA"},
		{"WARNING", "QA"},
	})

	if got := testutil.ToFloat64(r.PathsValidated); got != 1 {
		t.Errorf("PathsValidated = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.FindingsTotal.WithLabelValues("WARNING", "QA")); got != 2 {
		t.Errorf("WARNING/QA findings = %v, want 2", got)
	}
}

func TestRecordStoreOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordStoreOperation("record_attempt", "ok", 5*time.Millisecond)
	r.RecordStoreRetry("record_attempt")

	if got := testutil.ToFloat64(r.StoreOperationsTotal.WithLabelValues("record_attempt", "ok")); got != 1 {
		t.Errorf("store operations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.StoreRetriesTotal.WithLabelValues("record_attempt")); got != 1 {
		t.Errorf("store retries = %v, want 1", got)
	}
}
