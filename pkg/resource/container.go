package resource

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Container is the ordered ledger of resources held by one trial.
//
// The chunk marker is a position in [0, Len()]: entries at or after it form the
// current chunk, which ReleaseChunk rolls back as a unit.
// A Container belongs to exactly one trial; the mutex only protects readers such
// as status reporting.
type Container struct {
	warden *Warden

	mu     sync.Mutex
	ledger []string
	marker int
}

// NewContainer creates a container on top of w, optionally seeded with resources
// the owner already holds.
func NewContainer(w *Warden, held ...string) *Container {
	return &Container{
		warden: w,
		ledger: slices.Clone(held),
	}
}

// Acquire delegates to the warden and appends whatever was granted to the ledger tail.
// An empty result with a nil error means the request could not be satisfied.
func (c *Container) Acquire(ctx context.Context, specs ...Spec) ([]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	got, err := c.warden.Acquire(ctx, specs...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.ledger = append(c.ledger, got...)
	c.mu.Unlock()
	return got, nil
}

// Release releases the most recently acquired resource.
func (c *Container) Release(ctx context.Context) (string, error) {
	c.mu.Lock()
	n := len(c.ledger)
	c.mu.Unlock()
	return c.ReleaseAt(ctx, n-1)
}

// ReleaseAt releases the ledger entry at index. If the entry sat before the chunk
// marker, the marker moves back by one so it keeps bounding the same chunk.
func (c *Container) ReleaseAt(ctx context.Context, index int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.ledger) {
		return "", fmt.Errorf("%w: %d (held %d)", ErrIndexOutOfRange, index, len(c.ledger))
	}
	name := c.ledger[index]
	if _, err := c.warden.Release(ctx, name); err != nil {
		return "", err
	}

	c.ledger = slices.Delete(c.ledger, index, index+1)
	if index < c.marker {
		c.marker--
	}
	return name, nil
}

// ReleaseChunk releases every entry of the current chunk, newest first.
func (c *Container) ReleaseChunk(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	n := len(c.ledger) - c.marker
	c.mu.Unlock()
	return c.ReleaseN(ctx, n)
}

// ReleaseN releases the n newest entries, one at a time, newest first.
func (c *Container) ReleaseN(ctx context.Context, n int) ([]string, error) {
	c.mu.Lock()
	held := len(c.ledger)
	c.mu.Unlock()
	if n < 0 || n > held {
		return nil, fmt.Errorf("%w: cannot release %d of %d", ErrIndexOutOfRange, n, held)
	}

	released := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := c.Release(ctx)
		if err != nil {
			return released, err
		}
		released = append(released, name)
	}
	return released, nil
}

// ReleaseAll releases the whole ledger, newest first.
func (c *Container) ReleaseAll(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	n := len(c.ledger)
	c.mu.Unlock()
	return c.ReleaseN(ctx, n)
}

// ResetChunkMarker starts a fresh chunk at the current end of the ledger.
func (c *Container) ResetChunkMarker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marker = len(c.ledger)
}

// Held returns a copy of the ledger, oldest first.
func (c *Container) Held() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ledger)
}

// Len returns the number of held resources.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ledger)
}

// Marker returns the chunk marker position.
func (c *Container) Marker() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marker
}
