package store

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrUnavailable   = errors.New("store unavailable")
	ErrQueryFailed   = errors.New("query failed")
	ErrScanFailed    = errors.New("row scan failed")
	ErrWriteFailed   = errors.New("write failed")
	ErrMigrateFailed = errors.New("migration failed")
)

// StoreError provides structured error information for store operations.
type StoreError struct {
	Op     string // Operation that failed (e.g., "Build", "RecordAttempt")
	Entity string // Entity type (e.g., "node", "link", "attempt")
	ID     int64  // Entity ID (if applicable)
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *StoreError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

func opError(op, entity string, cause error) *StoreError {
	return &StoreError{Op: op, Entity: entity, Cause: cause}
}
