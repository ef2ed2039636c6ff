package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/registry"
	"github.com/aretw0/stagehand/pkg/resource"
)

var errNoWarden = errors.New("no resource pool configured")

// Acquire is a blocking stage that acquires resources into the trial's container,
// kept in the state under domain.KeyResources. Each acquisition starts a new chunk.
//
// When the resources are unavailable the stage reports "not complete" so it is
// retried on the next pass, or raises OnUnavailable if set.
type Acquire struct {
	Resources     any    `mapstructure:"resources"`
	OnUnavailable string `mapstructure:"on_unavailable"`

	warden  *resource.Warden
	specs   []resource.Spec
	outcome *domain.Kind
}

// NewAcquire decodes the options of an acquire stage.
func NewAcquire(env registry.Env, options map[string]any) (*Acquire, error) {
	a := &Acquire{warden: env.Warden}
	if err := registry.Decode(options, a); err != nil {
		return nil, err
	}
	if a.warden == nil {
		return nil, errNoWarden
	}
	specs, err := resource.ParseSpecs(a.Resources)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, errors.New("resources are required")
	}
	for _, s := range specs {
		if !a.warden.Has(s.Name) {
			return nil, fmt.Errorf("%w: %q", resource.ErrUnknownResource, s.Name)
		}
	}
	a.specs = specs
	if a.OnUnavailable != "" {
		k, err := domain.ParseKind(a.OnUnavailable)
		if err != nil {
			return nil, err
		}
		a.outcome = &k
	}
	return a, nil
}

// Start acquires every configured resource or none.
func (a *Acquire) Start(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	container, fresh := containerOf(state, a.warden)
	container.ResetChunkMarker()

	got, err := container.Acquire(ctx, a.specs...)
	if err != nil {
		return false, nil, err
	}
	if len(got) == 0 {
		if a.outcome != nil {
			return false, nil, domain.Raise(*a.outcome, fmt.Errorf("resources unavailable: %v", names(a.specs)))
		}
		return false, nil, nil
	}

	update := domain.Update{}
	if fresh {
		update[domain.KeyResources] = container
	}
	return true, update, nil
}

// Release is a blocking stage that releases the current chunk of the trial's
// container, or the whole ledger when All is set.
type Release struct {
	All bool `mapstructure:"all"`
}

// NewRelease decodes the options of a release stage.
func NewRelease(_ registry.Env, options map[string]any) (*Release, error) {
	r := &Release{}
	if err := registry.Decode(options, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Start releases the resources. A trial without a container has nothing to release.
func (r *Release) Start(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	container, ok := state[domain.KeyResources].(*resource.Container)
	if !ok {
		return true, nil, nil
	}
	var err error
	if r.All {
		_, err = container.ReleaseAll(ctx)
	} else {
		_, err = container.ReleaseChunk(ctx)
	}
	if err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

func containerOf(state domain.State, w *resource.Warden) (*resource.Container, bool) {
	if c, ok := state[domain.KeyResources].(*resource.Container); ok {
		return c, false
	}
	return resource.NewContainer(w), true
}

func names(specs []resource.Spec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Name
	}
	return out
}
