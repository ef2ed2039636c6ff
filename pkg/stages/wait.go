package stages

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/registry"
)

// Wait is a pollable stage that completes after Polls calls to IsDone or once
// Duration has elapsed since Start, whichever is configured. Its progress lives in
// the trial state under Key, so one Wait value can serve consecutive runs.
type Wait struct {
	Polls    int           `mapstructure:"polls"`
	Duration time.Duration `mapstructure:"duration"`
	Key      string        `mapstructure:"key"`
}

// NewWait decodes the options of a wait stage.
func NewWait(options map[string]any) (*Wait, error) {
	w := &Wait{Key: "wait"}
	if err := registry.Decode(options, w); err != nil {
		return nil, err
	}
	if w.Polls < 0 || w.Duration < 0 {
		return nil, errors.New("polls and duration must not be negative")
	}
	if w.Polls == 0 && w.Duration == 0 {
		w.Polls = 1
	}
	return w, nil
}

func (w *Wait) pollsKey() string   { return w.Key + "_polls" }
func (w *Wait) startedKey() string { return w.Key + "_started_at" }

// Start records the starting point.
func (w *Wait) Start(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	return true, domain.Update{
		w.pollsKey():   0,
		w.startedKey(): time.Now(),
	}, nil
}

// IsDone counts one poll and checks the configured limits.
func (w *Wait) IsDone(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	var progress struct {
		Polls   int       `mapstructure:"polls"`
		Started time.Time `mapstructure:"started"`
	}
	view := domain.State{"polls": state[w.pollsKey()], "started": state[w.startedKey()]}
	if err := view.Decode(&progress); err != nil {
		return false, nil, err
	}

	n := progress.Polls + 1
	done := true
	if w.Polls > 0 && n < w.Polls {
		done = false
	}
	if w.Duration > 0 && time.Since(progress.Started) < w.Duration {
		done = false
	}
	return done, domain.Update{w.pollsKey(): n}, nil
}
