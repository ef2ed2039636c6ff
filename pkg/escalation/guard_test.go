package escalation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/stagehand/internal/logging"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/escalation"
	"github.com/stretchr/testify/assert"
)

func TestGuard_PassthroughBypassesPolicy(t *testing.T) {
	reported := 0
	g := &escalation.Guard{
		Tier:        domain.TierTrial,
		Policy:      escalation.New(escalation.Entry{Kind: domain.KindIgnore, Repeat: 0}),
		Passthrough: escalation.TrialPassthrough,
		Logger:      logging.NewNop(),
		Report:      func(context.Context, error) { reported++ },
	}

	err := g.Call(context.Background(), func() error { return domain.ErrTrialAbort })

	assert.Same(t, domain.ErrTrialAbort, err)
	assert.Equal(t, 0, reported)
}

func TestGuard_TranslatesThenEscalates(t *testing.T) {
	ctx := context.Background()
	var reported []error
	var decisions []*domain.Kind
	g := &escalation.Guard{
		Tier:        domain.TierStage,
		Entity:      "provision",
		Policy:      escalation.New(escalation.Entry{Kind: domain.KindStageReset, Repeat: 1}),
		Passthrough: escalation.StagePassthrough,
		Logger:      logging.NewNop(),
		Report:      func(_ context.Context, err error) { reported = append(reported, err) },
		OnEscalate: func(_ context.Context, _ error, k *domain.Kind) {
			decisions = append(decisions, k)
		},
	}
	boom := errors.New("boom")

	first := g.Call(ctx, func() error { return boom })
	assert.ErrorIs(t, first, domain.ErrStageReset)

	second := g.Call(ctx, func() error { return boom })
	assert.Same(t, boom, second)

	assert.Len(t, reported, 2)
	if assert.Len(t, decisions, 2) {
		assert.Equal(t, domain.KindStageReset, *decisions[0])
		assert.Nil(t, decisions[1])
	}
}

func TestGuard_NonPassthroughOutcomeIsTreatedAsFailure(t *testing.T) {
	g := &escalation.Guard{
		Tier:        domain.TierTrial,
		Policy:      escalation.New(escalation.Entry{Kind: domain.KindTrialAbort, Repeat: 1}),
		Passthrough: escalation.TrialPassthrough,
	}

	err := g.Call(context.Background(), func() error { return domain.ErrExperimentReset })

	assert.ErrorIs(t, err, domain.ErrTrialAbort)
}

func TestGuard_NilErrorUntouched(t *testing.T) {
	g := &escalation.Guard{Policy: escalation.New(escalation.Entry{Kind: domain.KindIgnore, Repeat: 1})}

	assert.NoError(t, g.Call(context.Background(), func() error { return nil }))
	assert.Equal(t, 1, g.Policy.Len())
}
