package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/stagehand/pkg/ports"
)

var (
	// ErrUnknownResource is returned when a spec names a resource the warden does not manage.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrIndexOutOfRange is returned when a container is asked to release a position it does not hold.
	ErrIndexOutOfRange = errors.New("ledger index out of range")
)

// Warden arbitrates a mapping of resource name to bounded semaphore.
// It does not track who holds what; that is the Container's job.
// A Warden performs no locking of its own and is safe for concurrent use
// as long as its semaphores are.
type Warden struct {
	pool     map[string]ports.Semaphore
	defaults AcquireOptions
	logger   *slog.Logger
}

// Option configures a Warden.
type Option func(*Warden)

// WithDefaults sets the options used by specs without their own.
func WithDefaults(opts AcquireOptions) Option {
	return func(w *Warden) {
		w.defaults = opts
	}
}

// WithLogger sets the logger for acquisition tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Warden) {
		w.logger = logger
	}
}

// NewWarden creates a warden over pool. The default options are non-blocking.
func NewWarden(pool map[string]ports.Semaphore, opts ...Option) *Warden {
	w := &Warden{
		pool:   make(map[string]ports.Semaphore, len(pool)),
		logger: slog.New(slog.DiscardHandler),
	}
	for name, sem := range pool {
		w.pool[name] = sem
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Acquire takes every spec in order. On the first unavailable resource it releases
// everything acquired during this call and returns an empty slice with a nil error.
// Resources held from earlier calls are never touched.
// A non-nil error (unknown resource, backend failure) also rolls back this call.
func (w *Warden) Acquire(ctx context.Context, specs ...Spec) ([]string, error) {
	acquired := make([]string, 0, len(specs))

	for _, spec := range specs {
		sem, ok := w.pool[spec.Name]
		if !ok {
			w.rollback(ctx, acquired)
			return nil, fmt.Errorf("%w: %q", ErrUnknownResource, spec.Name)
		}

		opts := w.defaults
		if spec.Options != nil {
			opts = *spec.Options
		}

		ok, err := sem.Acquire(ctx, opts.Block, opts.Timeout)
		if err != nil {
			w.rollback(ctx, acquired)
			return nil, fmt.Errorf("failed to acquire %q: %w", spec.Name, err)
		}
		if !ok {
			w.logger.DebugContext(ctx, "resource unavailable, rolling back",
				"resource", spec.Name, "rollback", acquired)
			w.rollback(ctx, acquired)
			return []string{}, nil
		}
		acquired = append(acquired, spec.Name)
	}

	w.logger.DebugContext(ctx, "resources acquired", "resources", acquired)
	return acquired, nil
}

// Release returns one unit of every named resource and reports which ones were released.
// It does not verify that the caller held them.
func (w *Warden) Release(ctx context.Context, names ...string) ([]string, error) {
	released := make([]string, 0, len(names))
	var errs []error
	for _, name := range names {
		sem, ok := w.pool[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownResource, name))
			continue
		}
		if err := sem.Release(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to release %q: %w", name, err))
			continue
		}
		released = append(released, name)
	}
	return released, errors.Join(errs...)
}

// Has reports whether the warden manages a resource with that name.
func (w *Warden) Has(name string) bool {
	_, ok := w.pool[name]
	return ok
}

func (w *Warden) rollback(ctx context.Context, acquired []string) {
	if len(acquired) == 0 {
		return
	}
	if _, err := w.Release(ctx, acquired...); err != nil {
		w.logger.ErrorContext(ctx, "rollback failed", "resources", acquired, "err", err)
	}
}
