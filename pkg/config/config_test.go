package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/stagehand/internal/runtime"
	"github.com/aretw0/stagehand/pkg/config"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/aretw0/stagehand/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const full = `
log:
  level: debug
  format: json
interval: 50ms
max_restarts: 2
base:
  region: eu
  host: "?"
instances:
  - host: vm-a
  - host: vm-b
    region: us
schema:
  host: string
  region: string
  run: int
trials:
  - overrides: {run: 1}
  - overrides: {run: 2}
    stage_args:
      - {polls: 2}
stages:
  - name: boot
    kind: wait
    options: {polls: 3}
  - name: report
    kind: record
    options: {fields: [host, run]}
    escalation: ["stage_reset:2", trial_abort]
escalation:
  experiment: ["ignore:0"]
  trial: [trial_reset]
  stage: ["stage_reset:1"]
resources:
  pools: {vm: 2}
  defaults: {block: true, timeout: 5s}
sink:
  kind: file
  dir: out
metrics:
  addr: ":9090"
`

func TestParse_Full(t *testing.T) {
	cfg, err := config.Parse([]byte(full))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50*time.Millisecond, cfg.Interval)
	assert.Equal(t, 2, cfg.MaxRestarts)
	assert.Len(t, cfg.Schema, 3)
	assert.Equal(t, map[string]int{"vm": 2}, cfg.Resources.Pools)
	assert.True(t, cfg.Resources.Defaults.Block)
	assert.Equal(t, 5*time.Second, cfg.Resources.Defaults.Timeout)
	assert.Equal(t, config.BackendMemory, cfg.Resources.Backend, "default backend is kept")
	assert.Equal(t, "out", cfg.Sink.Dir)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)

	require.Len(t, cfg.Trials, 2)
	assert.Equal(t, domain.Update{"run": 1}, cfg.Trials[0].Overrides)
	require.Len(t, cfg.Trials[1].StageArgs, 1)
	assert.Equal(t, domain.Update{"polls": 2}, cfg.Trials[1].StageArgs[0])
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("instances: [{}]\nstages: [{name: a, kind: record}]\n"))
	require.NoError(t, err)

	assert.Equal(t, runtime.DefaultInterval, cfg.Interval)
	assert.Equal(t, config.SinkLog, cfg.Sink.Kind)
	assert.Equal(t, "stagehand:", cfg.Resources.Redis.Prefix)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := config.Parse([]byte("instances: [{}]\nstages: [{name: a, kind: record}]\nstagez: []\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no instances", "stages: [{name: a, kind: record}]", "no trial instances"},
		{"no stages", "instances: [{}]", "no stages"},
		{"duplicate stage", "instances: [{}]\nstages: [{name: a, kind: record}, {name: a, kind: wait}]", "duplicate name"},
		{"missing kind", "instances: [{}]\nstages: [{name: a}]", "kind is required"},
		{"bad policy", "instances: [{}]\nstages: [{name: a, kind: record}]\nescalation: {trial: [explode]}", "escalation.trial"},
		{"stage outcome at trial tier", "instances: [{}]\nstages: [{name: a, kind: record}]\nescalation: {trial: [\"stage_reset:0\"]}", "escalation.trial[0]: stage_reset cannot be handled at the trial tier"},
		{"stage outcome at experiment tier", "instances: [{}]\nstages: [{name: a, kind: record}]\nescalation: {experiment: [ignore, stage_abort]}", "escalation.experiment[1]"},
		{"bad stage policy", "instances: [{}]\nstages: [{name: a, kind: record, escalation: [\"stage_reset:x\"]}]", "stages[0].escalation"},
		{"too many stage args", "instances: [{}]\nstages: [{name: a, kind: record}]\ntrials: [{stage_args: [{}, {}]}]", "2 stage_args for 1 stages"},
		{"bad backend", "instances: [{}]\nstages: [{name: a, kind: record}]\nresources: {backend: etcd}", "unknown backend"},
		{"empty pool", "instances: [{}]\nstages: [{name: a, kind: record}]\nresources: {pools: {vm: 0}}", "capacity"},
		{"bad sink", "instances: [{}]\nstages: [{name: a, kind: record}]\nsink: {kind: s3}", "unknown kind"},
		{"bad redaction", "instances: [{}]\nstages: [{name: a, kind: record}]\nsink: {redact: [\"(\"]}", "sink.redact"},
		{"bad format", "instances: [{}]\nstages: [{name: a, kind: record}]\nlog: {format: xml}", "unknown format"},
		{"schema mismatch", "instances: [{port: x}]\nstages: [{name: a, kind: record}]\nschema: {port: int}", "instances[0] with trials[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_SchemaSeesOverrides(t *testing.T) {
	doc := `
instances: [{host: a}]
stages: [{name: a, kind: record}]
schema: {host: string, run: int}
trials:
  - overrides: {run: 1}
  - overrides: {run: one}
`
	_, err := config.Parse([]byte(doc))
	require.Error(t, err)

	var serr *schema.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "run", serr.Fields[0].Key)
	assert.Contains(t, err.Error(), "trials[1]")
	assert.NotContains(t, err.Error(), "trials[0]")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(full), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Stages, 2)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInstanceStates(t *testing.T) {
	cfg, err := config.Parse([]byte(full))
	require.NoError(t, err)

	states := cfg.InstanceStates()
	require.Len(t, states, 2)
	assert.Equal(t, domain.State{"region": "eu", "host": "vm-a"}, states[0])
	assert.Equal(t, domain.State{"region": "us", "host": "vm-b"}, states[1])

	states[0]["host"] = "changed"
	assert.Equal(t, "?", cfg.Base["host"], "slot states never alias the base")
}

func TestQueue(t *testing.T) {
	cfg, err := config.Parse([]byte(full))
	require.NoError(t, err)

	q := cfg.Queue()
	require.Equal(t, 2, q.Len())
	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, first.Overrides["run"])

	first.Overrides["run"] = 99
	assert.Equal(t, 1, cfg.Trials[0].Overrides["run"], "queued arg sets are copies")
	assert.Equal(t, 2, cfg.Queue().Len(), "every call builds a fresh queue")
}

func TestPolicies(t *testing.T) {
	cfg, err := config.Parse([]byte(full))
	require.NoError(t, err)

	opts, err := cfg.Policies()
	require.NoError(t, err)

	specs := make([]runtime.StageSpec, len(cfg.Stages))
	for i, st := range cfg.Stages {
		specs[i] = runtime.StageSpec{Name: st.Name, Blocking: true, Build: func() (ports.Stage, error) {
			return ports.StageFunc(func(ctx context.Context, s domain.State) (bool, domain.Update, error) { return true, nil, nil }), nil
		}}
	}
	exp, err := runtime.NewExperiment(nil, cfg.InstanceStates(), specs, cfg.Queue(), opts...)
	require.NoError(t, err)

	assert.Equal(t, 1, exp.Policy().Len())
	trial := exp.Slots()[0]
	assert.Equal(t, 1, trial.Policy().Len())
	assert.Equal(t, 1, trial.Stages()[0].Policy().Len(), "shared stage policy")
	assert.Equal(t, 3, trial.Stages()[1].Policy().Len(), "per-stage override")
}

func TestLoad_BundledExample(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "examples", "basic", "experiment.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Instances, 2)
	assert.Len(t, cfg.Stages, 6)
	assert.Equal(t, config.SinkFile, cfg.Sink.Kind)
}
