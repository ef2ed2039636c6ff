package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSemaphoreContract runs a suite of tests to verify that a Semaphore implementation
// adheres to the defined interface contract. sem must have a capacity of exactly 2
// and be fully released.
func RunSemaphoreContract(t *testing.T, sem Semaphore) {
	ctx := context.Background()

	t.Run("Acquire up to capacity", func(t *testing.T) {
		ok, err := sem.Acquire(ctx, false, 0)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = sem.Acquire(ctx, false, 0)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = sem.Acquire(ctx, false, 0)
		require.NoError(t, err)
		assert.False(t, ok, "non-blocking acquire beyond capacity must fail")

		require.NoError(t, sem.Release(ctx))
		require.NoError(t, sem.Release(ctx))
	})

	t.Run("Blocking acquire times out", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			ok, err := sem.Acquire(ctx, false, 0)
			require.NoError(t, err)
			require.True(t, ok)
		}

		start := time.Now()
		ok, err := sem.Acquire(ctx, true, 150*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "should wait for the timeout")

		require.NoError(t, sem.Release(ctx))
		require.NoError(t, sem.Release(ctx))
	})

	t.Run("Blocking acquire wakes on release", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			ok, err := sem.Acquire(ctx, false, 0)
			require.NoError(t, err)
			require.True(t, ok)
		}

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = sem.Release(ctx)
		}()

		ok, err := sem.Acquire(ctx, true, 2*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, sem.Release(ctx))
		require.NoError(t, sem.Release(ctx))
	})

	t.Run("Blocking acquire honours context", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			ok, err := sem.Acquire(ctx, false, 0)
			require.NoError(t, err)
			require.True(t, ok)
		}

		cctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		ok, err := sem.Acquire(cctx, true, 0)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		require.NoError(t, sem.Release(ctx))
		require.NoError(t, sem.Release(ctx))
	})

	t.Run("Over release", func(t *testing.T) {
		assert.ErrorIs(t, sem.Release(ctx), ErrOverRelease)
	})
}

// ResultSinkUnderTest is a sink that can also read back what it shipped.
type ResultSinkUnderTest interface {
	ResultSink
	ResultReader
}

// RunResultSinkContract verifies that shipped results are stored in order and
// that later mutation of the shipped value does not leak into the sink.
func RunResultSinkContract(t *testing.T, sink ResultSinkUnderTest) {
	ctx := context.Background()

	first := domain.NewTrialResults()
	first.Add("boot-ok")
	first.SetMetadata(domain.MetaTrialID, "trial-1")

	second := domain.NewTrialResults()
	second.SetMetadata(domain.MetaOutcome, domain.OutcomeAborted)

	require.NoError(t, sink.Ship(ctx, first))
	require.NoError(t, sink.Ship(ctx, second))

	first.Add("mutated-after-ship")

	shipped, err := sink.Shipped(ctx)
	require.NoError(t, err)
	require.Len(t, shipped, 2)
	assert.Equal(t, []any{"boot-ok"}, shipped[0].Data)
	assert.Equal(t, "trial-1", shipped[0].Metadata[domain.MetaTrialID])
	assert.Empty(t, shipped[1].Data)
	assert.Equal(t, domain.OutcomeAborted, shipped[1].Metadata[domain.MetaOutcome])
}
