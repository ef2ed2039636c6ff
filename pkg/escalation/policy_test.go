package escalation_test

import (
	"errors"
	"testing"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/escalation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky failure")

func TestPolicy_ConsumesInOrderThenPropagates(t *testing.T) {
	p := escalation.New(
		escalation.Entry{Kind: domain.KindStageReset, Repeat: 2},
		escalation.Entry{Kind: domain.KindTrialReset, Repeat: 1},
	)
	require.Equal(t, 3, p.Len())

	want := []domain.Kind{domain.KindStageReset, domain.KindStageReset, domain.KindTrialReset}
	for i, kind := range want {
		got := p.Next(errFlaky)
		gotKind, ok := domain.KindOf(got)
		require.True(t, ok, "failure %d should be translated", i+1)
		assert.Equal(t, kind, gotKind)
		assert.ErrorIs(t, got, errFlaky, "translated outcome keeps the cause")
	}

	// N+1th failure: sequence exhausted, the raw failure escapes.
	assert.Same(t, errFlaky, p.Next(errFlaky))
	assert.Equal(t, 0, p.Len())
}

func TestPolicy_ForeverNeverShrinks(t *testing.T) {
	p := escalation.New(
		escalation.Entry{Kind: domain.KindIgnore, Repeat: 0},
		escalation.Entry{Kind: domain.KindTrialAbort, Repeat: 1},
	)
	before := p.Steps()

	for i := 0; i < 100; i++ {
		assert.ErrorIs(t, p.Next(errFlaky), domain.ErrIgnore)
	}
	assert.Equal(t, before, p.Steps())
}

func TestPolicy_ResetRestoresOriginal(t *testing.T) {
	p := escalation.New(
		escalation.Entry{Kind: domain.KindStageReset, Repeat: 3},
		escalation.Entry{Kind: domain.KindTrialAbort, Repeat: 1},
	)
	original := p.Steps()

	p.Next(errFlaky)
	p.Next(errFlaky)
	require.Equal(t, 2, p.Len())

	p.Reset()
	assert.Equal(t, original, p.Steps())
	assert.Equal(t, p.Original(), p.Steps())

	// Exhaust completely and reset again.
	for p.Len() > 0 {
		p.Next(errFlaky)
	}
	p.Reset()
	assert.Equal(t, original, p.Steps())
}

func TestPolicy_CloneIsIndependent(t *testing.T) {
	p := escalation.New(escalation.Entry{Kind: domain.KindStageReset, Repeat: 2})
	cp := p.Clone()

	cp.Next(errFlaky)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 1, cp.Len())

	cp.Reset()
	assert.Equal(t, 2, cp.Len())
}

func TestPolicy_EmptyAndNil(t *testing.T) {
	assert.Same(t, errFlaky, escalation.New().Next(errFlaky))

	var nilPolicy *escalation.Policy
	assert.Same(t, errFlaky, nilPolicy.Next(errFlaky))
	assert.Equal(t, 0, nilPolicy.Len())
	nilPolicy.Reset()
}

func TestPolicy_KeepsFailureLevel(t *testing.T) {
	p := escalation.New(escalation.Entry{Kind: domain.KindTrialReset, Repeat: 1})
	failure := domain.Raise(domain.KindExperimentAbort, errFlaky).WithLevel(-4)

	got := p.Next(failure)
	assert.Equal(t, domain.LevelOf(failure), domain.LevelOf(got))
}

func TestParseEntries(t *testing.T) {
	entries, err := escalation.ParseEntries([]string{"stage_reset:3", "trial_reset", "ignore:0"})
	require.NoError(t, err)
	assert.Equal(t, []escalation.Entry{
		{Kind: domain.KindStageReset, Repeat: 3},
		{Kind: domain.KindTrialReset, Repeat: 1},
		{Kind: domain.KindIgnore, Repeat: 0},
	}, entries)

	_, err = escalation.ParseEntries([]string{"stage_reset:-1"})
	assert.Error(t, err)

	_, err = escalation.ParseEntries([]string{"retry:2"})
	assert.ErrorIs(t, err, domain.ErrUnknownOutcome)
}
