package sampling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/pathcover/pkg/coverage"
	"github.com/flowgrid/pathcover/pkg/network"
	"github.com/flowgrid/pathcover/pkg/paths"
	"github.com/flowgrid/pathcover/pkg/validation"
)

// memorySink collects everything the orchestrator persists.
type memorySink struct {
	attempts   []*Attempt
	executions []*PathExecution
	findings   map[int64][]validation.Finding
	summaries  []*RunSummary

	failAttempts bool
}

func newMemorySink() *memorySink {
	return &memorySink{findings: make(map[int64][]validation.Finding)}
}

func (m *memorySink) RecordAttempt(_ context.Context, a *Attempt) error {
	if m.failAttempts {
		return assert.AnError
	}
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *memorySink) RecordPathExecution(_ context.Context, e *PathExecution) error {
	m.executions = append(m.executions, e)
	return nil
}

func (m *memorySink) RecordFindings(_ context.Context, _ string, seq int64, findings []validation.Finding) error {
	m.findings[seq] = append(m.findings[seq], findings...)
	return nil
}

func (m *memorySink) RecordSummary(_ context.Context, s *RunSummary) error {
	m.summaries = append(m.summaries, s)
	return nil
}

func (m *memorySink) outcomes() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, a := range m.attempts {
		counts[a.Outcome]++
	}
	return counts
}

// finderFunc adapts a function to the paths.Finder interface.
type finderFunc func(ctx context.Context, start, end int64) (*paths.Path, error)

func (f finderFunc) FindPath(ctx context.Context, start, end int64) (*paths.Path, error) {
	return f(ctx, start, end)
}

// lineFixture is the canonical 6-node chain with PoCs on nodes 1 and 6.
type lineFixture struct {
	universe *network.Universe
	tracker  *coverage.Tracker
	sampler  *PairSampler
	path     *paths.Path
}

func newLineFixture(t *testing.T) *lineFixture {
	t.Helper()

	nodes := make([]network.Node, 6)
	for i := range nodes {
		nodes[i] = network.Node{ID: int64(i + 1), UtilityNo: 1}
	}
	links := make([]network.Link, 5)
	for i := range links {
		links[i] = network.Link{ID: int64(101 + i), StartNodeID: int64(i + 1), EndNodeID: int64(i + 2)}
	}
	nu, err := network.NewUniverse(nodes, links)
	require.NoError(t, err)
	tracker := coverage.NewTracker(nu)

	equipment := []network.Equipment{
		{ID: 1, Toolset: "TS01"},
		{ID: 2, Toolset: "TS01"},
	}
	pocs := []network.PoC{
		{ID: 11, EquipmentID: 1, NodeID: 1, UtilityNo: 1, IsUsed: true},
		{ID: 22, EquipmentID: 2, NodeID: 6, UtilityNo: 1, IsUsed: true},
	}
	bias := DefaultBiasConfig()
	bias.MinNodeDistance = 5

	path := &paths.Path{StartNodeID: 1, EndNodeID: 6}
	for i := 0; i < 5; i++ {
		path.Records = append(path.Records, paths.LinkRecord{
			Seq:    i,
			LinkID: int64(101 + i),
			Start:  paths.NodeSnapshot{ID: int64(i + 1), UtilityNo: 1},
			End:    paths.NodeSnapshot{ID: int64(i + 2), UtilityNo: 1},
		})
	}

	return &lineFixture{
		universe: nu,
		tracker:  tracker,
		sampler:  NewPairSampler(NewSamplingUniverse(equipment, pocs), tracker, bias, 1, nil),
		path:     path,
	}
}

func testConfig() Config {
	plateau := DefaultPlateauConfig()
	plateau.StallThreshold = 5
	plateau.MaxRelaxationLevels = 2
	bias := DefaultBiasConfig()
	bias.MinNodeDistance = 5
	return Config{
		RunID:          "test-run",
		Tag:            "20260831_random_unit",
		TargetCoverage: 1.0,
		Bias:           bias,
		Plateau:        plateau,
	}
}

func newTestValidator() *validation.Validator {
	return validation.NewValidator(validation.EmptyTransitionTable(), validation.DefaultConfig())
}

// TestRun_EndToEnd covers the canonical scenario: one pair, one found path,
// full coverage, zero findings, DONE at target.
func TestRun_EndToEnd(t *testing.T) {
	fx := newLineFixture(t)
	sink := newMemorySink()

	finder := finderFunc(func(_ context.Context, start, end int64) (*paths.Path, error) {
		require.True(t, (start == 1 && end == 6) || (start == 6 && end == 1))
		return fx.path, nil
	})

	o := NewOrchestrator(testConfig(), fx.sampler, finder, newTestValidator(), fx.tracker, sink, nil, nil)
	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, summary.Status)
	assert.Equal(t, ReasonTargetReached, summary.Reason)
	assert.Equal(t, 1.0, summary.NodePct)
	assert.Equal(t, 1.0, summary.LinkPct)
	assert.Equal(t, 1.0, summary.CombinedPct)
	assert.Equal(t, int64(1), summary.Found)
	assert.Equal(t, 1, summary.UniquePaths)
	assert.Empty(t, sink.findings, "a consistent path must produce no findings")
	require.Len(t, sink.attempts, 1)
	assert.Equal(t, OutcomeFound, sink.attempts[0].Outcome)
	require.Len(t, sink.summaries, 1)
	assert.Equal(t, "20260831_random_unit", sink.summaries[0].Tag, "summary must carry the run tag")
	require.Len(t, sink.executions, 1)
	assert.Equal(t, 6, sink.executions[0].NodeCount)
	assert.Equal(t, 5, sink.executions[0].LinkCount)
}

// TestRun_NoPathTerminates verifies that a universe with no connecting path
// still terminates through relaxation exhaustion, with every attempt
// persisted as NOT_FOUND and zero coverage mutation.
func TestRun_NoPathTerminates(t *testing.T) {
	fx := newLineFixture(t)
	sink := newMemorySink()

	finder := finderFunc(func(context.Context, int64, int64) (*paths.Path, error) {
		return nil, paths.ErrNoPath
	})

	o := NewOrchestrator(testConfig(), fx.sampler, finder, newTestValidator(), fx.tracker, sink, nil, nil)
	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, summary.Status)
	assert.Equal(t, ReasonRelaxationExhausted, summary.Reason)
	assert.Equal(t, 0.0, summary.CombinedPct)
	assert.NotEmpty(t, sink.attempts)
	assert.Equal(t, len(sink.attempts), sink.outcomes()[OutcomeNotFound], "every attempt must be NOT_FOUND")
	assert.LessOrEqual(t, summary.TotalAttempts, int64(50), "run must terminate within a bounded attempt count")
}

// TestRun_PartialCoverageAccepted drives an unreachable target: the finder
// only ever returns a two-node fragment, so relaxation exhausts and the best
// coverage is accepted as DONE, never FAILED.
func TestRun_PartialCoverageAccepted(t *testing.T) {
	fx := newLineFixture(t)
	sink := newMemorySink()

	fragment := &paths.Path{
		StartNodeID: 1,
		EndNodeID:   2,
		Records: []paths.LinkRecord{{
			Seq:    0,
			LinkID: 101,
			Start:  paths.NodeSnapshot{ID: 1, UtilityNo: 1},
			End:    paths.NodeSnapshot{ID: 2, UtilityNo: 1},
		}},
	}
	finder := finderFunc(func(context.Context, int64, int64) (*paths.Path, error) {
		return fragment, nil
	})

	o := NewOrchestrator(testConfig(), fx.sampler, finder, newTestValidator(), fx.tracker, sink, nil, nil)
	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, summary.Status)
	assert.Equal(t, ReasonRelaxationExhausted, summary.Reason)
	assert.InDelta(t, (2.0/6.0+1.0/5.0)/2, summary.CombinedPct, 1e-9)
	assert.Equal(t, int64(1), summary.Found)
	assert.NotZero(t, summary.FoundNoImprovement, "repeat fragments must count as FOUND_NO_IMPROVEMENT")
	assert.Equal(t, 1, summary.UniquePaths)
	assert.Equal(t, 2, summary.RelaxationLevel)
}

func TestRun_Cancellation(t *testing.T) {
	fx := newLineFixture(t)
	sink := newMemorySink()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finder := finderFunc(func(context.Context, int64, int64) (*paths.Path, error) {
		t.Fatal("finder must not be called after cancellation")
		return nil, nil
	})

	o := NewOrchestrator(testConfig(), fx.sampler, finder, newTestValidator(), fx.tracker, sink, nil, nil)
	summary, err := o.Run(ctx)
	require.NoError(t, err, "cancellation is a normal terminal outcome")

	assert.Equal(t, StateDone, summary.Status)
	assert.Equal(t, ReasonCancelled, summary.Reason)
	require.Len(t, sink.summaries, 1, "a cancelled run still persists its summary")
}

func TestRun_SinkFailureFailsRun(t *testing.T) {
	fx := newLineFixture(t)
	sink := newMemorySink()
	sink.failAttempts = true

	finder := finderFunc(func(context.Context, int64, int64) (*paths.Path, error) {
		return nil, paths.ErrNoPath
	})

	o := NewOrchestrator(testConfig(), fx.sampler, finder, newTestValidator(), fx.tracker, sink, nil, nil)
	summary, err := o.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, StateFailed, summary.Status)
	assert.Equal(t, ReasonStoreFailure, summary.Reason)
}

func TestRun_InvalidConfig(t *testing.T) {
	fx := newLineFixture(t)

	cfg := testConfig()
	cfg.TargetCoverage = 1.5

	o := NewOrchestrator(cfg, fx.sampler, nil, newTestValidator(), fx.tracker, newMemorySink(), nil, nil)
	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

// TestRun_PathOutsideUniverse feeds a path whose node ids escape the
// declared universe. The attempt fails with a CRITICAL connectivity finding
// and the run keeps going to a normal termination.
func TestRun_PathOutsideUniverse(t *testing.T) {
	fx := newLineFixture(t)
	sink := newMemorySink()

	alien := &paths.Path{
		StartNodeID: 1,
		EndNodeID:   99,
		Records: []paths.LinkRecord{{
			Seq:    0,
			LinkID: 999,
			Start:  paths.NodeSnapshot{ID: 1, UtilityNo: 1},
			End:    paths.NodeSnapshot{ID: 99, UtilityNo: 1},
		}},
	}
	finder := finderFunc(func(context.Context, int64, int64) (*paths.Path, error) {
		return alien, nil
	})

	o := NewOrchestrator(testConfig(), fx.sampler, finder, newTestValidator(), fx.tracker, sink, nil, nil)
	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, summary.Status)
	assert.Equal(t, 0.0, summary.CombinedPct, "an out-of-universe path must not mutate coverage")

	critical := false
	for _, findings := range sink.findings {
		for _, f := range findings {
			if f.RuleCode == validation.RuleUnknownElement && f.Severity == validation.SeverityCritical {
				critical = true
			}
		}
	}
	assert.True(t, critical, "expected a CRITICAL unknown-element finding")
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero target", func(c *Config) { c.TargetCoverage = 0 }, false},
		{"target above one", func(c *Config) { c.TargetCoverage = 1.01 }, false},
		{"negative max attempts", func(c *Config) { c.MaxAttempts = -1 }, false},
		{"zero stall threshold", func(c *Config) { c.Plateau.StallThreshold = 0 }, false},
		{"zero equipment cap", func(c *Config) { c.Bias.MaxAttemptsPerEquipment = 0 }, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := testConfig()
			c.mutate(&cfg)
			err := cfg.Validate()
			if c.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
