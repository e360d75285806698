package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowgrid/pathcover/pkg/sampling"
	"github.com/flowgrid/pathcover/pkg/validation"
)

// RecordAttempt appends one sampling attempt. Attempts arrive in sequence
// order per run and are never updated.
func (s *Store) RecordAttempt(ctx context.Context, a *sampling.Attempt) error {
	start := time.Now()
	var err error
	defer func() { s.observe("record_attempt", start, err) }()

	const query = `
		INSERT INTO tb_attempt_paths
			(run_id, seq, start_poc_id, end_poc_id, start_node_id, end_node_id, strategy, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	err = s.withRetry(ctx, "record_attempt", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, query,
			a.RunID, a.Seq, a.StartPoCID, a.EndPoCID, a.StartNodeID, a.EndNodeID,
			a.Strategy, string(a.Outcome), a.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: attempt: %v", ErrWriteFailed, err)
		}
		return nil
	})
	if err != nil {
		return &StoreError{Op: "RecordAttempt", Entity: "attempt", ID: a.Seq, Cause: err}
	}
	return nil
}

// RecordPathExecution appends the execution record of one found path.
func (s *Store) RecordPathExecution(ctx context.Context, e *sampling.PathExecution) error {
	start := time.Now()
	var err error
	defer func() { s.observe("record_path_execution", start, err) }()

	const query = `
		INSERT INTO tb_path_executions
			(run_id, attempt_seq, path_hash, node_count, link_count, total_length_mm,
			 total_cost, coverage_at, finding_count, critical_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	err = s.withRetry(ctx, "record_path_execution", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, query,
			e.RunID, e.AttemptSeq, e.Hash, e.NodeCount, e.LinkCount, e.TotalLengthMM,
			e.TotalCost, e.CoverageAtTime, e.FindingCount, e.CriticalCount, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: path execution: %v", ErrWriteFailed, err)
		}
		return nil
	})
	if err != nil {
		return &StoreError{Op: "RecordPathExecution", Entity: "path_execution", ID: e.AttemptSeq, Cause: err}
	}
	return nil
}

// RecordFindings appends all findings of one attempt in a single batch.
func (s *Store) RecordFindings(ctx context.Context, runID string, attemptSeq int64, findings []validation.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	start := time.Now()
	var err error
	defer func() { s.observe("record_findings", start, err) }()

	const query = `
		INSERT INTO tb_validation_errors
			(run_id, attempt_seq, rule_code, severity, scope, family, object_type, object_id, message, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	err = s.withRetry(ctx, "record_findings", func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("%w: begin findings tx: %v", ErrWriteFailed, err)
		}
		defer tx.Rollback(ctx)

		for _, f := range findings {
			var contextJSON []byte
			if f.Context != nil {
				contextJSON, err = json.Marshal(f.Context)
				if err != nil {
					return fmt.Errorf("%w: marshal finding context: %v", ErrWriteFailed, err)
				}
			}
			if _, err := tx.Exec(ctx, query,
				runID, attemptSeq, f.RuleCode, f.Severity.String(), f.Scope.String(),
				f.Family.String(), f.ObjectType.String(), f.ObjectID, f.Message, contextJSON); err != nil {
				return fmt.Errorf("%w: finding %s: %v", ErrWriteFailed, f.RuleCode, err)
			}
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return &StoreError{Op: "RecordFindings", Entity: "finding", ID: attemptSeq, Cause: err}
	}
	return nil
}

// RecordSummary upserts the finalized run summary.
func (s *Store) RecordSummary(ctx context.Context, sum *sampling.RunSummary) error {
	start := time.Now()
	var err error
	defer func() { s.observe("record_summary", start, err) }()

	const query = `
		INSERT INTO tb_runs
			(run_id, tag, status, reason, target_coverage, node_pct, link_pct, combined_pct,
			 total_attempts, found, found_no_improvement, not_found, unique_paths,
			 relaxation_level, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (run_id) DO UPDATE SET
			tag = EXCLUDED.tag,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			node_pct = EXCLUDED.node_pct,
			link_pct = EXCLUDED.link_pct,
			combined_pct = EXCLUDED.combined_pct,
			total_attempts = EXCLUDED.total_attempts,
			found = EXCLUDED.found,
			found_no_improvement = EXCLUDED.found_no_improvement,
			not_found = EXCLUDED.not_found,
			unique_paths = EXCLUDED.unique_paths,
			relaxation_level = EXCLUDED.relaxation_level,
			finished_at = EXCLUDED.finished_at`

	err = s.withRetry(ctx, "record_summary", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, query,
			sum.RunID, sum.Tag, sum.Status.String(), string(sum.Reason), sum.TargetCoverage,
			sum.NodePct, sum.LinkPct, sum.CombinedPct, sum.TotalAttempts, sum.Found,
			sum.FoundNoImprovement, sum.NotFound, sum.UniquePaths, sum.RelaxationLevel,
			sum.StartedAt, sum.FinishedAt)
		if err != nil {
			return fmt.Errorf("%w: run summary: %v", ErrWriteFailed, err)
		}
		return nil
	})
	if err != nil {
		return &StoreError{Op: "RecordSummary", Entity: "run", Cause: err}
	}
	return nil
}
