package observability_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	ctx := context.Background()
	m := observability.NewMetrics()
	h := m.Hooks()

	h.OnTrialFinish(ctx, &domain.TrialEvent{Outcome: domain.OutcomeCompleted})
	h.OnTrialFinish(ctx, &domain.TrialEvent{Outcome: domain.OutcomeCompleted})
	h.OnTrialFinish(ctx, &domain.TrialEvent{Outcome: domain.OutcomeAborted})
	h.OnStageEnter(ctx, &domain.StageEvent{Stage: "boot"})
	h.OnStageLeave(ctx, &domain.StageEvent{Stage: "boot", Elapsed: 20 * time.Millisecond})
	h.OnStageReset(ctx, &domain.StageEvent{Stage: "boot"})

	reset := domain.KindStageReset
	h.OnEscalation(ctx, &domain.EscalationEvent{Tier: domain.TierStage, Outcome: &reset, Err: errors.New("x")})
	h.OnEscalation(ctx, &domain.EscalationEvent{Tier: domain.TierTrial, Err: errors.New("x")})
	h.OnResultsShip(ctx, &domain.TrialEvent{})
	h.OnQueueAdvance(ctx, &domain.QueueEvent{Pending: 7})

	expected := `
# HELP stagehand_trials_total Total number of finished trial runs by outcome
# TYPE stagehand_trials_total counter
stagehand_trials_total{outcome="aborted"} 1
stagehand_trials_total{outcome="completed"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "stagehand_trials_total"))

	expected = `
# HELP stagehand_escalations_total Total number of intercepted failures by tier and resulting outcome
# TYPE stagehand_escalations_total counter
stagehand_escalations_total{outcome="escalated",tier="trial"} 1
stagehand_escalations_total{outcome="stage_reset",tier="stage"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "stagehand_escalations_total"))

	count, err := testutil.GatherAndCount(m.Registry, "stagehand_stage_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = testutil.GatherAndCount(m.Registry, "stagehand_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_QueueDepth(t *testing.T) {
	m := observability.NewMetrics()
	m.SetQueueDepth(3)

	expected := `
# HELP stagehand_queue_depth Number of pending argument sets
# TYPE stagehand_queue_depth gauge
stagehand_queue_depth 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "stagehand_queue_depth"))
}
