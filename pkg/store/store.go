package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgrid/pathcover/pkg/logging"
	"github.com/flowgrid/pathcover/pkg/metrics"
	"github.com/flowgrid/pathcover/pkg/network"
)

// Store is the PostgreSQL access layer: network reads, the shortest-path
// primitive, and the append-only result sink.
type Store struct {
	pool       *pgxpool.Pool
	classifier *network.Classifier
	retry      RetryPolicy
	log        logging.Logger
	met        *metrics.Registry
}

// Option customizes a Store.
type Option func(*Store)

// WithRetryPolicy overrides the transient-error retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

// WithLogger sets the store logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Store) { s.log = log.With(logging.Component("store")) }
}

// WithMetrics sets the metrics registry.
func WithMetrics(met *metrics.Registry) Option {
	return func(s *Store) { s.met = met }
}

// WithClassifier overrides the node role classifier.
func WithClassifier(c *network.Classifier) Option {
	return func(s *Store) { s.classifier = c }
}

// NewStore creates a PostgreSQL-backed store and verifies connectivity.
func NewStore(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s := &Store{
		pool:       pool,
		classifier: network.NewClassifier(nil, nil),
		retry:      DefaultRetryPolicy(),
		log:        logging.NewNopLogger(),
		met:        metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	// Create result tables if they don't exist. The network tables are
	// owned by the upstream loader and never created here.
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrMigrateFailed, err)
	}

	return s, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// observe records one store operation in the metrics registry.
func (s *Store) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.met.RecordStoreOperation(op, status, time.Since(start))
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tb_runs (
			run_id          TEXT PRIMARY KEY,
			tag             TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			reason          TEXT NOT NULL,
			target_coverage DOUBLE PRECISION NOT NULL,
			node_pct        DOUBLE PRECISION NOT NULL,
			link_pct        DOUBLE PRECISION NOT NULL,
			combined_pct    DOUBLE PRECISION NOT NULL,
			total_attempts  BIGINT NOT NULL,
			found           BIGINT NOT NULL,
			found_no_improvement BIGINT NOT NULL,
			not_found       BIGINT NOT NULL,
			unique_paths    BIGINT NOT NULL,
			relaxation_level INT NOT NULL,
			started_at      TIMESTAMPTZ NOT NULL,
			finished_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tb_attempt_paths (
			run_id        TEXT NOT NULL,
			seq           BIGINT NOT NULL,
			start_poc_id  BIGINT NOT NULL,
			end_poc_id    BIGINT NOT NULL,
			start_node_id BIGINT NOT NULL,
			end_node_id   BIGINT NOT NULL,
			strategy      TEXT NOT NULL,
			outcome       TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS tb_path_executions (
			run_id         TEXT NOT NULL,
			attempt_seq    BIGINT NOT NULL,
			path_hash      TEXT NOT NULL,
			node_count     INT NOT NULL,
			link_count     INT NOT NULL,
			total_length_mm DOUBLE PRECISION NOT NULL,
			total_cost     DOUBLE PRECISION NOT NULL,
			coverage_at    DOUBLE PRECISION NOT NULL,
			finding_count  INT NOT NULL,
			critical_count INT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (run_id, attempt_seq)
		)`,
		`CREATE TABLE IF NOT EXISTS tb_validation_errors (
			id          BIGSERIAL PRIMARY KEY,
			run_id      TEXT NOT NULL,
			attempt_seq BIGINT NOT NULL,
			rule_code   TEXT NOT NULL,
			severity    TEXT NOT NULL,
			scope       TEXT NOT NULL,
			family      TEXT NOT NULL,
			object_type TEXT NOT NULL,
			object_id   BIGINT NOT NULL,
			message     TEXT NOT NULL,
			context     JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_validation_errors_run
			ON tb_validation_errors (run_id, severity)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
