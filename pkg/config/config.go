package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/stagehand/internal/logging"
	"github.com/aretw0/stagehand/internal/runtime"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/escalation"
	"github.com/aretw0/stagehand/pkg/persistence/middleware"
	"github.com/aretw0/stagehand/pkg/resource"
	"github.com/aretw0/stagehand/pkg/schema"
	"gopkg.in/yaml.v3"
)

// Backends and sink kinds accepted in configuration files.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	SinkLog    = "log"
	SinkMemory = "memory"
	SinkFile   = "file"
	SinkRedis  = "redis"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root of an experiment file.
type Config struct {
	Log         LogConfig        `yaml:"log"`
	Interval    time.Duration    `yaml:"interval"`
	MaxRestarts int              `yaml:"max_restarts"`
	Base        map[string]any   `yaml:"base"`
	Instances   []map[string]any `yaml:"instances"`
	Schema      schema.Schema    `yaml:"schema"`
	Trials      []domain.ArgSet  `yaml:"trials"`
	Stages      []StageConfig    `yaml:"stages"`
	Escalation  EscalationConfig `yaml:"escalation"`
	Resources   ResourcesConfig  `yaml:"resources"`
	Sink        SinkConfig       `yaml:"sink"`
	Metrics     MetricsConfig    `yaml:"metrics"`
}

// LogConfig selects the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StageConfig declares one stage of every trial.
type StageConfig struct {
	Name    string         `yaml:"name"`
	Kind    string         `yaml:"kind"`
	Options map[string]any `yaml:"options"`

	// Escalation overrides the shared stage policy for this stage only.
	Escalation []string `yaml:"escalation"`
}

// EscalationConfig holds the policies of each tier, written as "kind[:repeat]".
type EscalationConfig struct {
	Experiment []string `yaml:"experiment"`
	Trial      []string `yaml:"trial"`
	Stage      []string `yaml:"stage"`
}

// RedisConfig locates a Redis server.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	Lease    time.Duration `yaml:"lease"`
}

// ResourcesConfig declares the shared resource pool.
type ResourcesConfig struct {
	Backend  string                  `yaml:"backend"`
	Redis    RedisConfig             `yaml:"redis"`
	Pools    map[string]int          `yaml:"pools"`
	Defaults resource.AcquireOptions `yaml:"defaults"`
}

// SinkConfig selects where results and failures go.
type SinkConfig struct {
	Kind  string      `yaml:"kind"`
	Dir   string      `yaml:"dir"`
	Redis RedisConfig `yaml:"redis"`

	// Redact lists regular expressions; values of matching keys are masked in
	// shipped results and failure state snapshots.
	Redact []string `yaml:"redact"`
}

// MetricsConfig enables the status and metrics server when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: logging.FormatAuto},
		Interval: runtime.DefaultInterval,
		Resources: ResourcesConfig{
			Backend: BackendMemory,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "stagehand:"},
		},
		Sink: SinkConfig{
			Kind:  SinkLog,
			Dir:   ".stagehand",
			Redis: RedisConfig{Addr: "localhost:6379", Prefix: "stagehand:"},
		},
	}
}

// Load reads and validates the experiment file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes an experiment file over the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural errors. Stage options are
// checked later, when the stage kinds build their implementations.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Instances) == 0 {
		errs = append(errs, domain.ErrNoInstances)
	}
	if len(c.Stages) == 0 {
		errs = append(errs, domain.ErrNoStages)
	}
	if c.Interval < 0 {
		fail("interval must not be negative")
	}
	if c.MaxRestarts < 0 {
		fail("max_restarts must not be negative")
	}
	switch c.Log.Format {
	case "", logging.FormatAuto, logging.FormatText, logging.FormatJSON:
	default:
		fail("log.format: unknown format %q", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Stages))
	for i, st := range c.Stages {
		switch {
		case st.Name == "":
			fail("stages[%d]: name is required", i)
		case seen[st.Name]:
			fail("stages[%d]: duplicate name %q", i, st.Name)
		}
		seen[st.Name] = true
		if st.Kind == "" {
			fail("stages[%d]: kind is required", i)
		}
		if _, err := escalation.ParseEntries(st.Escalation); err != nil {
			fail("stages[%d].escalation: %w", i, err)
		}
	}

	for _, tier := range []struct {
		name    string
		entries []string
	}{
		{"experiment", c.Escalation.Experiment},
		{"trial", c.Escalation.Trial},
		{"stage", c.Escalation.Stage},
	} {
		entries, err := escalation.ParseEntries(tier.entries)
		if err != nil {
			fail("escalation.%s: %w", tier.name, err)
			continue
		}
		if tier.name == "stage" {
			continue
		}
		// Stage outcomes raised above the stage tier would never reach a stage.
		for i, e := range entries {
			if e.Kind.Tier() == domain.TierStage {
				fail("escalation.%s[%d]: %s cannot be handled at the %s tier", tier.name, i, e.Kind, tier.name)
			}
		}
	}

	for i, args := range c.Trials {
		if len(args.StageArgs) > len(c.Stages) {
			fail("trials[%d]: %d stage_args for %d stages", i, len(args.StageArgs), len(c.Stages))
		}
	}

	switch c.Resources.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Resources.Redis.Addr == "" {
			fail("resources.redis.addr is required")
		}
	default:
		fail("resources.backend: unknown backend %q", c.Resources.Backend)
	}
	for name, n := range c.Resources.Pools {
		if n < 1 {
			fail("resources.pools.%s: capacity must be at least 1", name)
		}
	}

	switch c.Sink.Kind {
	case SinkLog, SinkMemory:
	case SinkFile:
		if c.Sink.Dir == "" {
			fail("sink.dir is required")
		}
	case SinkRedis:
		if c.Sink.Redis.Addr == "" {
			fail("sink.redis.addr is required")
		}
	default:
		fail("sink.kind: unknown kind %q", c.Sink.Kind)
	}
	if _, err := middleware.NewRedactor(c.Sink.Redact); err != nil {
		fail("sink.redact: %w", err)
	}

	if err := c.validateStates(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// validateStates checks every initial state a trial can start from against the schema.
func (c *Config) validateStates() error {
	if len(c.Schema) == 0 {
		return nil
	}
	trials := c.Trials
	if len(trials) == 0 {
		trials = []domain.ArgSet{{}}
	}
	var errs []error
	for i, instance := range c.InstanceStates() {
		for j, args := range trials {
			state := instance.Clone()
			state.Merge(args.Overrides)
			if err := c.Schema.Validate(state); err != nil {
				errs = append(errs, fmt.Errorf("instances[%d] with trials[%d]: %w", i, j, err))
			}
		}
	}
	return errors.Join(errs...)
}

// InstanceStates returns the initial state of each slot: the base configuration
// merged with the slot's instance configuration, as fresh maps.
func (c *Config) InstanceStates() []domain.State {
	states := make([]domain.State, len(c.Instances))
	for i, instance := range c.Instances {
		s := domain.State(c.Base).Clone()
		if s == nil {
			s = domain.State{}
		}
		for k, v := range instance {
			s[k] = v
		}
		states[i] = s
	}
	return states
}

// Queue returns a fresh queue holding every configured trial in order.
func (c *Config) Queue() *runtime.ArgQueue {
	q := runtime.NewArgQueue()
	for _, args := range c.Trials {
		q.Push(domain.ArgSet{
			StageArgs: cloneUpdates(args.StageArgs),
			Overrides: args.Overrides.Clone(),
		})
	}
	return q
}

// Policies translates the escalation section into runtime options. When any
// stage declares its own policy, every stage gets an explicit one and the rest
// fall back to the shared stage policy.
func (c *Config) Policies() ([]runtime.Option, error) {
	experiment, err := escalation.ParseEntries(c.Escalation.Experiment)
	if err != nil {
		return nil, fmt.Errorf("escalation.experiment: %w", err)
	}
	trial, err := escalation.ParseEntries(c.Escalation.Trial)
	if err != nil {
		return nil, fmt.Errorf("escalation.trial: %w", err)
	}
	stage, err := escalation.ParseEntries(c.Escalation.Stage)
	if err != nil {
		return nil, fmt.Errorf("escalation.stage: %w", err)
	}

	opts := []runtime.Option{
		runtime.WithPolicy(experiment...),
		runtime.WithTrialPolicy(trial...),
		runtime.WithStagePolicy(stage...),
	}

	perStage := false
	for _, st := range c.Stages {
		if len(st.Escalation) > 0 {
			perStage = true
			break
		}
	}
	if !perStage {
		return opts, nil
	}

	policies := make([][]escalation.Entry, len(c.Stages))
	for i, st := range c.Stages {
		if len(st.Escalation) == 0 {
			policies[i] = stage
			continue
		}
		if policies[i], err = escalation.ParseEntries(st.Escalation); err != nil {
			return nil, fmt.Errorf("stages[%d].escalation: %w", i, err)
		}
	}
	return append(opts, runtime.WithStagePolicies(policies...)), nil
}

// Logger builds the application logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return logging.New(logging.ParseLevel(c.Log.Level), c.Log.Format, w)
}

func cloneUpdates(in []domain.Update) []domain.Update {
	if in == nil {
		return nil
	}
	out := make([]domain.Update, len(in))
	for i, u := range in {
		out[i] = u.Clone()
	}
	return out
}
