package process_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/stagehand/pkg/adapters/process"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exec stage tests use sh")
	}
}

// poll calls IsDone until the stage finishes or fails.
func poll(t *testing.T, s *process.Stage, state domain.State) (domain.Update, error) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		done, update, err := s.IsDone(context.Background(), state)
		if err != nil || done {
			return update, err
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("command did not finish")
	return nil, nil
}

func TestStage_ParsesJSONOutput(t *testing.T) {
	requireShell(t)
	s, err := process.NewStage(process.Config{
		Command: "sh",
		Args:    []string{"-c", `echo '{"vm":"10.0.0.7"}'`},
		SaveTo:  "provisioned",
		Emit:    true,
	})
	require.NoError(t, err)

	started, _, err := s.Start(context.Background(), domain.State{})
	require.NoError(t, err)
	assert.True(t, started)

	update, err := poll(t, s, domain.State{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"vm": "10.0.0.7"}, update["provisioned"])
	assert.Equal(t, update["provisioned"], update[domain.KeyTrialResults])
}

func TestStage_PassesStateViaEnv(t *testing.T) {
	requireShell(t)
	s, err := process.NewStage(process.Config{
		Command: "sh",
		Args:    []string{"-c", `echo "$STAGEHAND_ARG_TARGET_HOST:$STAGEHAND_ARG_PORT"`},
		SaveTo:  "out",
	})
	require.NoError(t, err)

	state := domain.State{"target-host": "db", "port": 5432}
	_, _, err = s.Start(context.Background(), state)
	require.NoError(t, err)

	update, err := poll(t, s, state)
	require.NoError(t, err)
	assert.Equal(t, "db:5432", update["out"])
}

func TestStage_NonZeroExitIsFailure(t *testing.T) {
	requireShell(t)
	s, err := process.NewStage(process.Config{Command: "sh", Args: []string{"-c", "echo nope >&2; exit 3"}})
	require.NoError(t, err)

	_, _, err = s.Start(context.Background(), domain.State{})
	require.NoError(t, err)

	_, err = poll(t, s, domain.State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	_, isOutcome := domain.KindOf(err)
	assert.False(t, isOutcome, "a failing command is an unexpected failure")
}

func TestStage_TimeoutRaisesOutcome(t *testing.T) {
	requireShell(t)
	s, err := process.NewStage(process.Config{
		Command:   "sleep",
		Args:      []string{"5"},
		Timeout:   50 * time.Millisecond,
		OnTimeout: "trial_abort",
	})
	require.NoError(t, err)

	_, _, err = s.Start(context.Background(), domain.State{})
	require.NoError(t, err)

	_, err = poll(t, s, domain.State{})
	assert.ErrorIs(t, err, domain.ErrTrialAbort)
	assert.ErrorIs(t, err, process.ErrTimeout)
}

func TestStage_Validation(t *testing.T) {
	_, err := process.NewStage(process.Config{})
	assert.Error(t, err)

	_, err = process.NewStage(process.Config{Command: "true", OnTimeout: "explode"})
	assert.ErrorIs(t, err, domain.ErrUnknownOutcome)
}

func TestStage_MissingBinary(t *testing.T) {
	s, err := process.NewStage(process.Config{Command: "definitely-not-a-binary-on-path"})
	require.NoError(t, err)

	_, _, err = s.Start(context.Background(), domain.State{})
	assert.Error(t, err)
}

func TestStage_PollWithoutStartResets(t *testing.T) {
	s, err := process.NewStage(process.Config{Command: "true"})
	require.NoError(t, err)

	_, _, err = s.IsDone(context.Background(), domain.State{})
	assert.ErrorIs(t, err, domain.ErrStageReset)
}
