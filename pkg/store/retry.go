package store

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/flowgrid/pathcover/pkg/logging"
)

// RetryPolicy bounds how transient store failures are retried at the call
// site. Backoff doubles per retry up to MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns the production retry defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}
}

// isTransient classifies errors worth retrying: connection-class SQLSTATEs,
// serialization failures, admission rejections and plain network errors.
// Context cancellation is never transient.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		if len(code) >= 2 && code[:2] == "08" { // connection exception class
			return true
		}
		switch code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"53300", // too_many_connections
			"57P03": // cannot_connect_now
			return true
		}
		return false
	}

	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// withRetry runs fn, retrying transient failures per the policy. The last
// error is returned once the budget is spent or a non-transient error occurs.
func (s *Store) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := s.retry.BaseDelay
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= s.retry.MaxRetries || !isTransient(err) {
			return err
		}

		s.met.RecordStoreRetry(op)
		s.log.Warn("transient store error, retrying",
			logging.String("op", op),
			logging.Int("attempt", attempt+1),
			logging.Duration("backoff", delay),
			logging.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.retry.MaxDelay {
			delay = s.retry.MaxDelay
		}
	}
}
