package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/stagehand/internal/runtime"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/aretw0/stagehand/pkg/resource"
	"github.com/mitchellh/mapstructure"
)

// ErrUnknownKind is returned when a stage kind has not been registered.
var ErrUnknownKind = errors.New("unknown stage kind")

// Env carries the shared collaborators handed to stage factories.
type Env struct {
	Warden *resource.Warden
	Logger *slog.Logger
}

// Factory builds one stage implementation from its configuration options.
// It is called once per trial slot.
type Factory func(env Env, options map[string]any) (ports.Stage, error)

// Registration describes a stage kind.
type Registration struct {
	Factory  Factory
	Blocking bool
}

// Registry manages the available stage kinds.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Registration
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]Registration),
	}
}

// Register adds a stage kind to the registry.
// If a kind with the same name exists, it is overwritten.
func (r *Registry) Register(kind string, blocking bool, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = Registration{Factory: fn, Blocking: blocking}
}

// Lookup returns the registration of a kind.
func (r *Registry) Lookup(kind string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.kinds[kind]
	return reg, ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Spec looks up a kind and returns a stage spec named name whose builder calls the
// kind's factory with options. The factory is invoked once eagerly so configuration
// errors surface before the experiment starts.
func (r *Registry) Spec(name, kind string, options map[string]any, env Env) (runtime.StageSpec, error) {
	reg, ok := r.Lookup(kind)
	if !ok {
		return runtime.StageSpec{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if env.Logger == nil {
		env.Logger = slog.New(slog.DiscardHandler)
	}
	if _, err := reg.Factory(env, options); err != nil {
		return runtime.StageSpec{}, fmt.Errorf("invalid options for stage %q (%s): %w", name, kind, err)
	}
	return runtime.StageSpec{
		Name:     name,
		Blocking: reg.Blocking,
		Build: func() (ports.Stage, error) {
			return reg.Factory(env, options)
		},
	}, nil
}

// Decode copies loosely typed options into out (a pointer to a struct).
// Strings are accepted for numbers, booleans and durations; unknown keys are an error.
func Decode(options map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to build options decoder: %w", err)
	}
	if options == nil {
		return nil
	}
	return dec.Decode(options)
}
