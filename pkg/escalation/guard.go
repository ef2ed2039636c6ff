package escalation

import (
	"context"
	"log/slog"
	"slices"

	"github.com/aretw0/stagehand/pkg/domain"
)

// Passthrough sets used by the orchestrator tiers.
var (
	// StagePassthrough lets a stage's intentional signals reach the trial's outcome table.
	StagePassthrough = []domain.Kind{
		domain.KindIgnore,
		domain.KindStageAbort, domain.KindStageReset,
		domain.KindTrialAbort, domain.KindTrialReset,
	}

	// TrialPassthrough is the canonical Stage/Trial Abort/Reset set.
	TrialPassthrough = []domain.Kind{
		domain.KindStageAbort, domain.KindStageReset,
		domain.KindTrialAbort, domain.KindTrialReset,
	}

	// ExperimentPassthrough lets a trial's escalated Ignore reach the scheduling loop
	// and experiment-tier signals reach the caller.
	ExperimentPassthrough = []domain.Kind{
		domain.KindIgnore,
		domain.KindStageAbort, domain.KindStageReset,
		domain.KindTrialAbort, domain.KindTrialReset,
		domain.KindExperimentAbort, domain.KindExperimentReset,
	}
)

// ReportFunc receives every intercepted failure before the policy is consulted.
type ReportFunc func(ctx context.Context, err error)

// EscalateFunc observes the decision taken for an intercepted failure.
// outcome is nil when the policy was exhausted and err escalates unchanged.
type EscalateFunc func(ctx context.Context, err error, outcome *domain.Kind)

// Guard wraps a step operation: outcomes in Passthrough propagate verbatim,
// any other error is logged, reported and replaced by the policy's next outcome.
type Guard struct {
	Tier        domain.Tier
	Entity      string
	Policy      *Policy
	Passthrough []domain.Kind
	Logger      *slog.Logger
	Report      ReportFunc
	OnEscalate  EscalateFunc
}

// Call runs fn and translates its error. A nil error is returned unchanged.
func (g *Guard) Call(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if kind, ok := domain.KindOf(err); ok && slices.Contains(g.Passthrough, kind) {
		return err
	}

	if g.Logger != nil {
		g.Logger.Log(ctx, domain.LevelOf(err), "step failed",
			"tier", g.Tier,
			"entity", g.Entity,
			"err", err,
			"policy_remaining", g.Policy.Len(),
		)
	}
	if g.Report != nil {
		g.Report(ctx, err)
	}

	exhausted := g.Policy.Len() == 0
	next := g.Policy.Next(err)
	if g.OnEscalate != nil {
		if exhausted {
			g.OnEscalate(ctx, err, nil)
		} else if kind, ok := domain.KindOf(next); ok {
			g.OnEscalate(ctx, err, &kind)
		}
	}
	return next
}
