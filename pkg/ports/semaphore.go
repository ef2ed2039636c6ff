package ports

import (
	"context"
	"errors"
	"time"
)

// ErrOverRelease is returned when a bounded semaphore is released more times than it was acquired.
var ErrOverRelease = errors.New("semaphore released too many times")

// Semaphore is the bounded counting primitive behind one named resource.
// Implementations must be safe for concurrent use; distributed implementations
// allow several experiment processes to share one resource pool.
type Semaphore interface {
	// Acquire takes one unit. When block is false it returns immediately.
	// When block is true it waits until a unit is free, timeout elapses
	// (timeout <= 0 means no timeout) or ctx is done.
	// A false result with a nil error means the unit was not available.
	Acquire(ctx context.Context, block bool, timeout time.Duration) (bool, error)

	// Release returns one unit.
	Release(ctx context.Context) error
}
