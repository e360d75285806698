package paths

import (
	"context"
	"errors"
)

// ErrNoPath is returned by a Finder when no connecting path exists between
// the requested endpoints. It is an expected outcome, not a failure.
var ErrNoPath = errors.New("no path between endpoints")

// Finder is the external shortest-path/reachability primitive. The engine
// does not implement graph search itself; the store layer provides the
// production implementation and tests provide synthetic ones.
type Finder interface {
	// FindPath returns the path between two node ids, or ErrNoPath when the
	// endpoints are not connected. Any other error is an I/O failure.
	FindPath(ctx context.Context, startNodeID, endNodeID int64) (*Path, error)
}
