package sampling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/pathcover/pkg/coverage"
	"github.com/flowgrid/pathcover/pkg/logging"
	"github.com/flowgrid/pathcover/pkg/metrics"
	"github.com/flowgrid/pathcover/pkg/paths"
	"github.com/flowgrid/pathcover/pkg/validation"
)

// State is the orchestrator's position in its run state machine.
type State int

const (
	StateInit State = iota
	StateSampling
	StatePlateauCheck
	StateRelaxing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSampling:
		return "SAMPLING"
	case StatePlateauCheck:
		return "PLATEAU_CHECK"
	case StateRelaxing:
		return "RELAXING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Outcome classifies one attempt.
type Outcome string

const (
	OutcomeFound              Outcome = "FOUND"
	OutcomeFoundNoImprovement Outcome = "FOUND_NO_IMPROVEMENT"
	OutcomeNotFound           Outcome = "NOT_FOUND"
)

// TerminationReason explains why a run left the sampling loop.
type TerminationReason string

const (
	ReasonTargetReached       TerminationReason = "target_reached"
	ReasonRelaxationExhausted TerminationReason = "relaxation_exhausted"
	ReasonCancelled           TerminationReason = "cancelled"
	ReasonAttemptCap          TerminationReason = "attempt_cap"
	ReasonStoreFailure        TerminationReason = "store_failure"
	ReasonFinderFailure       TerminationReason = "finder_failure"
)

// Attempt is one sampling trial. Every attempt is persisted, found or not.
type Attempt struct {
	RunID       string
	Seq         int64
	StartPoCID  int64
	EndPoCID    int64
	StartNodeID int64
	EndNodeID   int64
	Strategy    string
	Outcome     Outcome
	CreatedAt   time.Time
}

// PathExecution summarizes one found path at the moment it was accepted.
type PathExecution struct {
	RunID          string
	AttemptSeq     int64
	Hash           string
	NodeCount      int
	LinkCount      int
	TotalLengthMM  float64
	TotalCost      float64
	CoverageAtTime float64
	FindingCount   int
	CriticalCount  int
	CreatedAt      time.Time
}

// RunSummary is the finalized record of one sampling run.
type RunSummary struct {
	RunID              string
	Tag                string
	Status             State
	Reason             TerminationReason
	TargetCoverage     float64
	NodePct            float64
	LinkPct            float64
	CombinedPct        float64
	TotalAttempts      int64
	Found              int64
	FoundNoImprovement int64
	NotFound           int64
	UniquePaths        int
	RelaxationLevel    int
	StartedAt          time.Time
	FinishedAt         time.Time
}

// Duration returns the wall-clock span of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// SuccessRate returns the fraction of attempts that found a path.
func (s *RunSummary) SuccessRate() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.Found+s.FoundNoImprovement) / float64(s.TotalAttempts)
}

// ResultSink receives every record the run produces. Implementations own
// their retry policy for transient failures; an error returned here is
// treated as systemic and fails the run.
type ResultSink interface {
	RecordAttempt(ctx context.Context, a *Attempt) error
	RecordPathExecution(ctx context.Context, e *PathExecution) error
	RecordFindings(ctx context.Context, runID string, attemptSeq int64, findings []validation.Finding) error
	RecordSummary(ctx context.Context, s *RunSummary) error
}

// Config parameterizes one orchestrator run.
type Config struct {
	// RunID identifies the run. Generated when empty.
	RunID string

	// Tag is the operator-facing run label, recorded alongside the RunID in
	// the persisted summary.
	Tag string

	// TargetCoverage is the combined coverage fraction to reach.
	TargetCoverage float64

	// MaxAttempts is a safety cap on total attempts, independent of plateau
	// and relaxation handling.
	MaxAttempts int64

	Bias    BiasConfig
	Plateau PlateauConfig
}

// DefaultMaxAttempts caps runaway runs that keep finding paths without
// converging.
const DefaultMaxAttempts = 100000

// Validate checks the run configuration before any sampling starts.
func (c *Config) Validate() error {
	if c.TargetCoverage <= 0 || c.TargetCoverage > 1 {
		return fmt.Errorf("target coverage %v outside (0, 1]: %w", c.TargetCoverage, ErrInvalidConfig)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max attempts %d is negative: %w", c.MaxAttempts, ErrInvalidConfig)
	}
	if c.Plateau.StallThreshold <= 0 {
		return fmt.Errorf("plateau stall threshold %d must be positive: %w", c.Plateau.StallThreshold, ErrInvalidConfig)
	}
	if c.Plateau.MaxRelaxationLevels < 0 {
		return fmt.Errorf("max relaxation levels %d is negative: %w", c.Plateau.MaxRelaxationLevels, ErrInvalidConfig)
	}
	if c.Bias.MaxAttemptsPerEquipment <= 0 || c.Bias.MaxAttemptsPerToolset <= 0 {
		return fmt.Errorf("attempt caps must be positive: %w", ErrInvalidConfig)
	}
	return nil
}

// ErrInvalidConfig marks configuration rejected at run init.
var ErrInvalidConfig = errors.New("invalid sampling configuration")

// Orchestrator drives one sampling run through its state machine:
//
//	INIT -> SAMPLING -> (PLATEAU_CHECK <-> RELAXING) -> DONE | FAILED
//
// Termination is guaranteed: either the coverage target is met, the attempt
// cap is hit, or the relaxation budget is exhausted and the best coverage is
// accepted. FAILED is reserved for systemic errors, never for a coverage gap.
//
// Single-threaded by design; the tracker and sampler are not shared.
type Orchestrator struct {
	cfg       Config
	sampler   *PairSampler
	finder    paths.Finder
	validator *validation.Validator
	tracker   *coverage.Tracker
	sink      ResultSink
	log       logging.Logger
	met       *metrics.Registry

	state State

	attempts           int64
	found              int64
	foundNoImprovement int64
	notFound           int64
	uniquePaths        map[string]struct{}

	best            float64
	stall           int
	relaxationLevel int
	baseMinDistance int64
}

// NewOrchestrator wires a run together. The metrics registry may be nil.
func NewOrchestrator(cfg Config, sampler *PairSampler, finder paths.Finder, validator *validation.Validator, tracker *coverage.Tracker, sink ResultSink, log logging.Logger, met *metrics.Registry) *Orchestrator {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if met == nil {
		met = metrics.NewRegistry()
	}
	return &Orchestrator{
		cfg:             cfg,
		sampler:         sampler,
		finder:          finder,
		validator:       validator,
		tracker:         tracker,
		sink:            sink,
		log:             log.With(logging.Component("orchestrator"), logging.RunID(cfg.RunID)),
		met:             met,
		uniquePaths:     make(map[string]struct{}),
		baseMinDistance: cfg.Bias.MinNodeDistance,
	}
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the state machine to completion and returns the finalized
// summary. The context is checked at the top of each sampling iteration;
// cancellation finalizes the run as DONE with the coverage achieved so far.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	if err := o.cfg.Validate(); err != nil {
		o.state = StateFailed
		return nil, err
	}

	started := time.Now()
	o.state = StateSampling
	o.log.Info("run started",
		logging.Float64("target_coverage", o.cfg.TargetCoverage),
		logging.Int64("max_attempts", o.cfg.MaxAttempts))

	for {
		switch o.state {
		case StateSampling:
			if ctx.Err() != nil {
				o.log.Warn("run cancelled", logging.Attempt(o.attempts))
				return o.finalize(StateDone, ReasonCancelled, started)
			}
			if o.tracker.CombinedPct() >= o.cfg.TargetCoverage {
				return o.finalize(StateDone, ReasonTargetReached, started)
			}
			if o.attempts >= o.cfg.MaxAttempts {
				o.log.Warn("attempt cap reached", logging.Attempt(o.attempts))
				return o.finalize(StateDone, ReasonAttemptCap, started)
			}

			pair, ok := o.sampler.NextPair()
			if !ok {
				// No candidate satisfies the bias constraints. Not an
				// error; the plateau check decides what happens next.
				o.state = StatePlateauCheck
				continue
			}
			o.met.RecordPairSelection(o.sampler.Strategy())

			if err := o.attempt(ctx, pair); err != nil {
				reason := ReasonFinderFailure
				if errors.Is(err, errSinkFailure) {
					reason = ReasonStoreFailure
				}
				summary, _ := o.finalize(StateFailed, reason, started)
				return summary, err
			}
			o.state = StatePlateauCheck

		case StatePlateauCheck:
			combined := o.tracker.CombinedPct()
			if combined-o.best > o.cfg.Plateau.MinImprovement {
				o.best = combined
				o.stall = 0
				o.state = StateSampling
				continue
			}
			o.stall++
			if o.stall >= o.cfg.Plateau.StallThreshold {
				o.met.PlateauEventsTotal.Inc()
				o.log.Info("coverage plateau detected",
					logging.Coverage(combined),
					logging.Int("stall", o.stall))
				o.state = StateRelaxing
				continue
			}
			o.state = StateSampling

		case StateRelaxing:
			if o.relaxationLevel >= o.cfg.Plateau.MaxRelaxationLevels {
				o.log.Info("relaxation exhausted, accepting best coverage",
					logging.Coverage(o.tracker.CombinedPct()))
				return o.finalize(StateDone, ReasonRelaxationExhausted, started)
			}
			o.relaxationLevel++
			newDistance := o.baseMinDistance - int64(o.relaxationLevel)*o.cfg.Plateau.DistanceStep
			if newDistance < 1 {
				newDistance = 1
			}
			o.sampler.SetMinDistance(newDistance)
			o.met.RelaxationLevel.Set(float64(o.relaxationLevel))
			o.stall = 0
			o.log.Info("bias constraints relaxed",
				logging.Int("level", o.relaxationLevel),
				logging.Int64("min_distance", newDistance))
			o.state = StateSampling

		default:
			// DONE and FAILED return from inside the transitions above.
			return nil, fmt.Errorf("orchestrator reached unexpected state %s", o.state)
		}
	}
}

// errSinkFailure tags persistence failures so finalize can distinguish them
// from finder failures.
var errSinkFailure = errors.New("result sink failure")

// attempt runs one full trial: path find, validation, coverage marking and
// persistence. Per-attempt problems (no path, out-of-universe elements) are
// contained; only systemic errors are returned.
func (o *Orchestrator) attempt(ctx context.Context, pair *Pair) error {
	o.attempts++
	o.met.RunIterationsTotal.Inc()

	attempt := &Attempt{
		RunID:       o.cfg.RunID,
		Seq:         o.attempts,
		StartPoCID:  pair.Start.ID,
		EndPoCID:    pair.End.ID,
		StartNodeID: pair.Start.NodeID,
		EndNodeID:   pair.End.NodeID,
		Strategy:    o.sampler.Strategy(),
		CreatedAt:   time.Now(),
	}

	findStart := time.Now()
	path, err := o.finder.FindPath(ctx, pair.Start.NodeID, pair.End.NodeID)
	o.met.RecordPathFind(time.Since(findStart))

	switch {
	case errors.Is(err, paths.ErrNoPath):
		attempt.Outcome = OutcomeNotFound
		o.notFound++
		return o.persistAttempt(ctx, attempt)
	case err != nil:
		return fmt.Errorf("find path %d -> %d: %w", pair.Start.NodeID, pair.End.NodeID, err)
	}

	valStart := time.Now()
	findings := o.validator.Validate(path)
	o.recordValidation(time.Since(valStart), findings)

	improved, err := o.tracker.WouldImprove(path)
	if errors.Is(err, coverage.ErrUnknownElement) {
		// The path escaped its declared universe. Fatal to this attempt
		// only: record a CRITICAL finding and keep sampling.
		o.log.Error("path references element outside universe",
			logging.Attempt(attempt.Seq), logging.Error(err))
		findings = append(findings, validation.UnknownElementFinding(validation.ObjectPath, 0))
		attempt.Outcome = OutcomeNotFound
		o.notFound++
		if err := o.persistFindings(ctx, attempt.Seq, findings); err != nil {
			return err
		}
		return o.persistAttempt(ctx, attempt)
	} else if err != nil {
		return fmt.Errorf("coverage check: %w", err)
	}

	if improved {
		attempt.Outcome = OutcomeFound
		o.found++
	} else {
		attempt.Outcome = OutcomeFoundNoImprovement
		o.foundNoImprovement++
	}

	if _, err := o.tracker.MarkPath(path); err != nil {
		return fmt.Errorf("mark path: %w", err)
	}
	o.uniquePaths[path.Hash()] = struct{}{}
	o.met.UniquePathsTotal.Set(float64(len(o.uniquePaths)))
	o.met.UpdateCoverage(o.tracker.NodePct(), o.tracker.LinkPct(), o.tracker.CombinedPct())

	execution := &PathExecution{
		RunID:          o.cfg.RunID,
		AttemptSeq:     attempt.Seq,
		Hash:           path.Hash(),
		NodeCount:      path.NodeCount(),
		LinkCount:      path.LinkCount(),
		TotalLengthMM:  path.TotalLengthMM,
		TotalCost:      path.TotalCost,
		CoverageAtTime: o.tracker.CombinedPct(),
		FindingCount:   len(findings),
		CriticalCount:  validation.CountBySeverity(findings)[validation.SeverityCritical],
		CreatedAt:      time.Now(),
	}
	if err := o.sink.RecordPathExecution(ctx, execution); err != nil {
		return fmt.Errorf("%w: record path execution: %v", errSinkFailure, err)
	}
	if err := o.persistFindings(ctx, attempt.Seq, findings); err != nil {
		return err
	}
	return o.persistAttempt(ctx, attempt)
}

func (o *Orchestrator) persistAttempt(ctx context.Context, a *Attempt) error {
	o.met.RecordAttempt(string(a.Outcome))
	if err := o.sink.RecordAttempt(ctx, a); err != nil {
		return fmt.Errorf("%w: record attempt %d: %v", errSinkFailure, a.Seq, err)
	}
	return nil
}

func (o *Orchestrator) persistFindings(ctx context.Context, seq int64, findings []validation.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	if err := o.sink.RecordFindings(ctx, o.cfg.RunID, seq, findings); err != nil {
		return fmt.Errorf("%w: record findings for attempt %d: %v", errSinkFailure, seq, err)
	}
	return nil
}

func (o *Orchestrator) recordValidation(d time.Duration, findings []validation.Finding) {
	pairs := make([][2]string, len(findings))
	for i, f := range findings {
		pairs[i] = [2]string{f.Severity.String(), f.Scope.String()}
	}
	o.met.RecordValidation(d, pairs)
}

// finalize builds and persists the run summary. Summary persistence is best
// effort on the failure path so the original error is not masked.
func (o *Orchestrator) finalize(state State, reason TerminationReason, started time.Time) (*RunSummary, error) {
	o.state = state
	summary := &RunSummary{
		RunID:              o.cfg.RunID,
		Tag:                o.cfg.Tag,
		Status:             state,
		Reason:             reason,
		TargetCoverage:     o.cfg.TargetCoverage,
		NodePct:            o.tracker.NodePct(),
		LinkPct:            o.tracker.LinkPct(),
		CombinedPct:        o.tracker.CombinedPct(),
		TotalAttempts:      o.attempts,
		Found:              o.found,
		FoundNoImprovement: o.foundNoImprovement,
		NotFound:           o.notFound,
		UniquePaths:        len(o.uniquePaths),
		RelaxationLevel:    o.relaxationLevel,
		StartedAt:          started,
		FinishedAt:         time.Now(),
	}
	o.met.UpdateCoverage(summary.NodePct, summary.LinkPct, summary.CombinedPct)

	// Persist with a fresh context so a cancelled run still records its
	// summary.
	persistCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := o.sink.RecordSummary(persistCtx, summary); err != nil {
		if state == StateFailed {
			o.log.Error("summary persistence failed during failure handling", logging.Error(err))
		} else {
			return summary, fmt.Errorf("%w: record summary: %v", errSinkFailure, err)
		}
	}

	o.log.Info("run finished",
		logging.String("status", state.String()),
		logging.String("reason", string(reason)),
		logging.Coverage(summary.CombinedPct),
		logging.Int64("attempts", summary.TotalAttempts),
		logging.Int("unique_paths", summary.UniquePaths))
	return summary, nil
}
