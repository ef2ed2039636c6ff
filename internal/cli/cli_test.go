package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/aretw0/stagehand/pkg/registry"
	"github.com/aretw0/stagehand/pkg/stages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basic = `
interval: 0s
instances: [{host: a}, {host: b}]
trials:
  - overrides: {run: 1}
  - overrides: {run: 2}
  - overrides: {run: 3}
stages:
  - name: boot
    kind: wait
    options: {polls: 2}
  - name: report
    kind: record
    options: {fields: [host, run]}
sink:
  kind: memory
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRun_Completes(t *testing.T) {
	var logs bytes.Buffer
	summary, err := Run(context.Background(), RunOptions{
		ConfigPath:  writeConfig(t, basic),
		MaxRestarts: -1,
		Err:         &logs,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Completed)
	assert.Equal(t, 3, summary.Shipped)
	assert.Equal(t, 2, summary.Slots)
	assert.Equal(t, []int{0, 0}, summary.Errors)
	assert.Zero(t, summary.Restarts)
}

// resetting raises ExperimentReset on its first n calls across every instance.
func resetting(n int) *registry.Registry {
	calls := 0
	reg := stages.Default()
	reg.Register("resetting", true, func(registry.Env, map[string]any) (ports.Stage, error) {
		return ports.StageFunc(func(context.Context, domain.State) (bool, domain.Update, error) {
			calls++
			if calls <= n {
				return false, nil, domain.ErrExperimentReset
			}
			return true, nil, nil
		}), nil
	})
	return reg
}

const restartable = `
interval: 0s
max_restarts: 2
instances: [{}]
trials: [{}]
stages:
  - name: gate
    kind: resetting
sink:
  kind: memory
`

func TestRun_RestartsOnExperimentReset(t *testing.T) {
	summary, err := Run(context.Background(), RunOptions{
		ConfigPath:  writeConfig(t, restartable),
		MaxRestarts: -1,
		Registry:    resetting(1),
		Err:         &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Restarts)
	assert.Equal(t, 1, summary.Completed)
}

func TestRun_GivesUpAfterMaxRestarts(t *testing.T) {
	summary, err := Run(context.Background(), RunOptions{
		ConfigPath:  writeConfig(t, restartable),
		MaxRestarts: 1,
		Registry:    resetting(100),
		Err:         &bytes.Buffer{},
	})
	assert.ErrorIs(t, err, domain.ErrExperimentReset)
	assert.Equal(t, 1, summary.Restarts)
	assert.ErrorIs(t, summary.Err, domain.ErrExperimentReset)
}

func TestRun_InvalidConfig(t *testing.T) {
	summary, err := Run(context.Background(), RunOptions{ConfigPath: writeConfig(t, "stages: []"), MaxRestarts: -1})
	assert.Error(t, err)
	assert.Nil(t, summary)
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(nil))
	assert.NoError(t, handleExecutionError(context.Canceled))

	var exit *ExitError
	require.True(t, errors.As(handleExecutionError(domain.Raise(domain.KindExperimentAbort, nil)), &exit))
	assert.Equal(t, ExitAborted, exit.Code)

	require.True(t, errors.As(handleExecutionError(errors.New("boom")), &exit))
	assert.Equal(t, ExitFailure, exit.Code)
}

func TestValidate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Validate(&out, writeConfig(t, basic), nil))
	assert.Contains(t, out.String(), "2 slots, 2 stages, 3 queued trials")

	bad := writeConfig(t, "instances: [{}]\nstages: [{name: a, kind: wait, options: {polls: -1}}]\n")
	assert.Error(t, Validate(&out, bad, nil))
}

func TestGraph(t *testing.T) {
	doc := basic + "escalation:\n  trial: [trial_reset]\n  stage: [\"stage_reset:2\"]\n"
	var out bytes.Buffer
	require.NoError(t, Graph(&out, writeConfig(t, doc), nil))
	assert.Contains(t, out.String(), `s0_boot(["boot <br/> wait"])`)
	assert.Contains(t, out.String(), `s1_report -. "stage_reset" .-> s1_report`)
	assert.Contains(t, out.String(), `done -. "trial_reset" .-> s0_boot`)
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	PrintSummary(&out, &Summary{
		Config:    "x.yaml",
		Slots:     2,
		Completed: 4,
		Restarts:  1,
		Errors:    []int{1, 0},
		Err:       errors.New("boom"),
	})
	s := out.String()
	assert.Contains(t, s, "stopped")
	assert.Contains(t, s, "x.yaml")
	assert.Contains(t, s, "#0:1 #1:0")
	assert.Contains(t, s, "boom")
}
