package memory

import (
	"context"
	"time"

	"github.com/aretw0/stagehand/pkg/ports"
)

// Semaphore implements ports.Semaphore in process with a buffered channel.
// Safe for concurrent use.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity.
// A capacity below 1 is raised to 1.
func NewSemaphore(capacity int) *Semaphore {
	if capacity < 1 {
		capacity = 1
	}
	return &Semaphore{ch: make(chan struct{}, capacity)}
}

// Acquire takes one unit, optionally waiting for it.
func (s *Semaphore) Acquire(ctx context.Context, block bool, timeout time.Duration) (bool, error) {
	if !block {
		select {
		case s.ch <- struct{}{}:
			return true, nil
		default:
			return false, nil
		}
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case s.ch <- struct{}{}:
		return true, nil
	case <-expired:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Release returns one unit.
func (s *Semaphore) Release(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	default:
		return ports.ErrOverRelease
	}
}

// Capacity returns the semaphore capacity.
func (s *Semaphore) Capacity() int {
	return cap(s.ch)
}

// InUse returns the number of units currently held.
func (s *Semaphore) InUse() int {
	return len(s.ch)
}

// NewPool builds one semaphore per entry of capacities.
func NewPool(capacities map[string]int) map[string]ports.Semaphore {
	pool := make(map[string]ports.Semaphore, len(capacities))
	for name, n := range capacities {
		pool[name] = NewSemaphore(n)
	}
	return pool
}
