package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/stagehand/pkg/adapters/memory"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_Contract(t *testing.T) {
	ports.RunSemaphoreContract(t, memory.NewSemaphore(2))
}

func TestSemaphore_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, memory.NewSemaphore(0).Capacity())
}

func TestSemaphore_ConcurrentHolders(t *testing.T) {
	sem := memory.NewSemaphore(3)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	peak, current := 0, 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := sem.Acquire(ctx, true, 0)
			if err != nil || !ok {
				return
			}
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			mu.Lock()
			current--
			mu.Unlock()
			_ = sem.Release(ctx)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 3)
	assert.Equal(t, 0, sem.InUse())
}

func TestNewPool(t *testing.T) {
	pool := memory.NewPool(map[string]int{"vm": 2, "license": 1})
	require.Len(t, pool, 2)

	ok, err := pool["license"].Acquire(context.Background(), false, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = pool["license"].Acquire(context.Background(), false, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
