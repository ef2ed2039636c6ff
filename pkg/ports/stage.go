package ports

import (
	"context"

	"github.com/aretw0/stagehand/pkg/domain"
)

// Stage is the business logic of one trial stage.
//
// Start receives a copy of the trial state. done == true means the stage is complete
// (for blocking stages) or started (for pollable stages); update is merged into the
// trial state either way. Returning a *domain.Outcome (e.g. domain.ErrStageReset)
// signals an intentional control outcome; any other error is treated as an
// unexpected failure and routed through the stage's escalation policy.
//
// Start must return promptly: the whole scheduler shares one control loop.
type Stage interface {
	Start(ctx context.Context, state domain.State) (done bool, update domain.Update, err error)
}

// PollingStage is a Stage whose work continues after Start returns.
// IsDone is called on every scheduler pass until it reports completion.
type PollingStage interface {
	Stage
	IsDone(ctx context.Context, state domain.State) (done bool, update domain.Update, err error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc func(ctx context.Context, state domain.State) (bool, domain.Update, error)

// Start calls f.
func (f StageFunc) Start(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	return f(ctx, state)
}
