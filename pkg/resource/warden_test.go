package resource_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/stagehand/pkg/adapters/memory"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/aretw0/stagehand/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSemaphore always reports a backend error.
type failingSemaphore struct{}

func (failingSemaphore) Acquire(context.Context, bool, time.Duration) (bool, error) {
	return false, errors.New("backend down")
}

func (failingSemaphore) Release(context.Context) error { return nil }

func newPool(t *testing.T) (map[string]*memory.Semaphore, *resource.Warden) {
	t.Helper()
	sems := map[string]*memory.Semaphore{
		"a": memory.NewSemaphore(2),
		"b": memory.NewSemaphore(1),
		"c": memory.NewSemaphore(1),
	}
	pool := make(map[string]ports.Semaphore, len(sems))
	for k, v := range sems {
		pool[k] = v
	}
	return sems, resource.NewWarden(pool)
}

func TestWarden_AcquireInOrder(t *testing.T) {
	sems, w := newPool(t)
	ctx := context.Background()

	got, err := w.Acquire(ctx, resource.Names("a", "b", "c")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 1, sems["a"].InUse())
	assert.Equal(t, 1, sems["b"].InUse())
	assert.Equal(t, 1, sems["c"].InUse())
}

func TestWarden_RollbackOnlyThisCall(t *testing.T) {
	sems, w := newPool(t)
	ctx := context.Background()

	// Pre-existing holding of "a" from an earlier call.
	held, err := w.Acquire(ctx, resource.Names("a")...)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, held)

	// Exhaust "b" elsewhere.
	ok, err := sems["b"].Acquire(ctx, false, 0)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := w.Acquire(ctx, resource.Names("a", "b", "c")...)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got, "total failure is an empty result, not nil")

	assert.Equal(t, 1, sems["a"].InUse(), "only the 'a' acquired by the failed call is released")
	assert.Equal(t, 1, sems["b"].InUse())
	assert.Equal(t, 0, sems["c"].InUse(), "'c' is never attempted")
}

func TestWarden_UnknownResource(t *testing.T) {
	sems, w := newPool(t)

	_, err := w.Acquire(context.Background(), resource.Names("a", "gpu")...)
	assert.ErrorIs(t, err, resource.ErrUnknownResource)
	assert.Equal(t, 0, sems["a"].InUse())
	assert.False(t, w.Has("gpu"))
	assert.True(t, w.Has("a"))
}

func TestWarden_BackendError(t *testing.T) {
	a := memory.NewSemaphore(1)
	w := resource.NewWarden(map[string]ports.Semaphore{"a": a, "broken": failingSemaphore{}})

	_, err := w.Acquire(context.Background(), resource.Names("a", "broken")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
	assert.Equal(t, 0, a.InUse())
}

func TestWarden_PerSpecOptions(t *testing.T) {
	sems, w := newPool(t)
	ctx := context.Background()
	_, err := w.Acquire(ctx, resource.Names("b")...)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = w.Release(ctx, "b")
	}()

	got, err := w.Acquire(ctx, resource.Spec{
		Name:    "b",
		Options: &resource.AcquireOptions{Block: true, Timeout: 2 * time.Second},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, 1, sems["b"].InUse())
}

func TestWarden_ReleaseReportsReleased(t *testing.T) {
	_, w := newPool(t)
	ctx := context.Background()
	_, err := w.Acquire(ctx, resource.Names("a", "c")...)
	require.NoError(t, err)

	released, err := w.Release(ctx, "a", "nope", "c")
	assert.ErrorIs(t, err, resource.ErrUnknownResource)
	assert.Equal(t, []string{"a", "c"}, released)
}

func TestSpecsFromMap(t *testing.T) {
	specs, err := resource.SpecsFromMap(map[string]any{
		"vm":      map[string]any{"block": true, "timeout": "1500ms"},
		"license": nil,
	})
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "license", specs[0].Name)
	assert.Nil(t, specs[0].Options)
	assert.Equal(t, "vm", specs[1].Name)
	require.NotNil(t, specs[1].Options)
	assert.True(t, specs[1].Options.Block)
	assert.Equal(t, 1500*time.Millisecond, specs[1].Options.Timeout)

	_, err = resource.SpecsFromMap(map[string]any{"vm": map[string]any{"blocking": true}})
	assert.Error(t, err)
}

func TestParseSpecs(t *testing.T) {
	specs, err := resource.ParseSpecs([]any{"a", map[string]any{"b": map[string]any{"block": "true"}}})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "a", specs[0].Name)
	assert.True(t, specs[1].Options.Block)

	_, err = resource.ParseSpecs(42)
	assert.Error(t, err)
}
