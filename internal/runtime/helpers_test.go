package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/stagehand/internal/runtime"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/stretchr/testify/require"
)

type stepFunc func(ctx context.Context, state domain.State) (bool, domain.Update, error)

// scripted is a pollable stage whose behaviour is provided by the test.
type scripted struct {
	start  stepFunc
	isDone stepFunc
}

func (s *scripted) Start(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	return s.start(ctx, state)
}

func (s *scripted) IsDone(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	if s.isDone == nil {
		return true, nil, nil
	}
	return s.isDone(ctx, state)
}

// emit is a blocking stage body that appends value to the trial results.
func emit(value any) stepFunc {
	return func(context.Context, domain.State) (bool, domain.Update, error) {
		return true, domain.Update{domain.KeyTrialResults: value}, nil
	}
}

// sequence returns the scripted responses in order, repeating the last one.
func sequence(steps ...stepFunc) stepFunc {
	i := 0
	return func(ctx context.Context, state domain.State) (bool, domain.Update, error) {
		fn := steps[i]
		if i < len(steps)-1 {
			i++
		}
		return fn(ctx, state)
	}
}

func fail(err error) stepFunc {
	return func(context.Context, domain.State) (bool, domain.Update, error) {
		return false, nil, err
	}
}

func result(done bool, update domain.Update) stepFunc {
	return func(context.Context, domain.State) (bool, domain.Update, error) {
		return done, update, nil
	}
}

func blockingSpec(name string, fn stepFunc) runtime.StageSpec {
	return runtime.StageSpec{
		Name:     name,
		Blocking: true,
		Build: func() (ports.Stage, error) {
			return ports.StageFunc(fn), nil
		},
	}
}

func pollableSpec(name string, start, isDone stepFunc) runtime.StageSpec {
	return runtime.StageSpec{
		Name: name,
		Build: func() (ports.Stage, error) {
			return &scripted{start: start, isDone: isDone}, nil
		},
	}
}

// drive steps the trial until it reports done, failing the test after limit steps.
func drive(t *testing.T, trial *runtime.Trial, limit int) (int, *domain.TrialResults) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= limit; i++ {
		done, results, err := trial.Step(ctx)
		require.NoError(t, err)
		if done {
			return i, results
		}
	}
	t.Fatalf("trial not done after %d steps", limit)
	return 0, nil
}
