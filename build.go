package stagehand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/stagehand/internal/logging"
	"github.com/aretw0/stagehand/pkg/adapters/file"
	"github.com/aretw0/stagehand/pkg/adapters/memory"
	"github.com/aretw0/stagehand/pkg/adapters/redis"
	"github.com/aretw0/stagehand/pkg/config"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/persistence/middleware"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/aretw0/stagehand/pkg/registry"
	"github.com/aretw0/stagehand/pkg/resource"
	"github.com/aretw0/stagehand/pkg/stages"
	backend "github.com/redis/go-redis/v9"
)

// BuildOptions tunes how a configuration is assembled.
type BuildOptions struct {
	// Registry resolves stage kinds. Nil uses the built-in kinds.
	Registry *registry.Registry
	// Logger is handed to the experiment and every adapter. Nil discards logs.
	Logger *slog.Logger
	// Hooks are registered on the experiment.
	Hooks domain.LifecycleHooks
	// DryRun replaces the configured sink with log output.
	DryRun bool
	// Extra options are applied after the ones derived from the configuration.
	Extra []Option
}

// Assembly is an experiment built from configuration, together with the
// collaborators it owns. Close releases them.
type Assembly struct {
	Experiment *Experiment
	Warden     *resource.Warden
	Sink       ports.ResultSink
	Failures   ports.FailureLog

	closers []func() error
}

// Close releases connections opened by Build.
func (a *Assembly) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build assembles a ready-to-run experiment from cfg. Redis backends are pinged
// with ctx so an unreachable server fails here rather than mid-run.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Assembly, error) {
	if opts.Registry == nil {
		opts.Registry = stages.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	a := &Assembly{}
	fail := func(err error) (*Assembly, error) {
		_ = a.Close()
		return nil, err
	}

	warden, err := a.warden(ctx, cfg, opts.Logger)
	if err != nil {
		return fail(err)
	}
	a.Warden = warden

	if err := a.sinks(ctx, cfg, opts); err != nil {
		return fail(err)
	}

	specs, err := Specs(cfg, opts.Registry, registry.Env{Warden: warden, Logger: opts.Logger})
	if err != nil {
		return fail(err)
	}

	policies, err := cfg.Policies()
	if err != nil {
		return fail(err)
	}

	runtimeOpts := append([]Option{
		WithLogger(opts.Logger),
		WithLifecycleHooks(opts.Hooks),
		WithInterval(cfg.Interval),
		WithResultSink(a.Sink),
		WithFailureLog(a.Failures),
	}, policies...)
	runtimeOpts = append(runtimeOpts, opts.Extra...)

	a.Experiment, err = NewExperiment(nil, cfg.InstanceStates(), specs, cfg.Queue(), runtimeOpts...)
	if err != nil {
		return fail(err)
	}
	return a, nil
}

// Specs resolves every configured stage through reg.
func Specs(cfg *config.Config, reg *registry.Registry, env registry.Env) ([]StageSpec, error) {
	specs := make([]StageSpec, len(cfg.Stages))
	for i, st := range cfg.Stages {
		spec, err := reg.Spec(st.Name, st.Kind, st.Options, env)
		if err != nil {
			return nil, fmt.Errorf("stages[%d]: %w", i, err)
		}
		specs[i] = spec
	}
	return specs, nil
}

func (a *Assembly) warden(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*resource.Warden, error) {
	rc := cfg.Resources
	wardenOpts := []resource.Option{
		resource.WithDefaults(rc.Defaults),
		resource.WithLogger(logger),
	}

	if rc.Backend != config.BackendRedis {
		return resource.NewWarden(memory.NewPool(rc.Pools), wardenOpts...), nil
	}

	client, err := a.connect(ctx, rc.Redis)
	if err != nil {
		return nil, fmt.Errorf("resources: %w", err)
	}
	var semOpts []redis.SemaphoreOption
	if rc.Redis.Lease > 0 {
		semOpts = append(semOpts, redis.WithLease(rc.Redis.Lease))
	}
	return resource.NewWarden(redis.NewPool(client, rc.Redis.Prefix, rc.Pools, semOpts...), wardenOpts...), nil
}

func (a *Assembly) sinks(ctx context.Context, cfg *config.Config, opts BuildOptions) error {
	kind := cfg.Sink.Kind
	if opts.DryRun {
		kind = config.SinkLog
	}

	switch kind {
	case config.SinkMemory:
		a.Sink, a.Failures = memory.NewResultSink(), memory.NewFailureLog()
	case config.SinkFile:
		s := file.New(cfg.Sink.Dir)
		a.Sink, a.Failures = s, s
	case config.SinkRedis:
		client, err := a.connect(ctx, cfg.Sink.Redis)
		if err != nil {
			return fmt.Errorf("sink: %w", err)
		}
		s := redis.NewFromClient(client, redis.WithPrefix(cfg.Sink.Redis.Prefix))
		a.Sink, a.Failures = s, s
	default:
		a.Sink = logging.NewResultSink(opts.Logger)
		a.Failures = logging.NewFailureLog(opts.Logger)
	}

	if len(cfg.Sink.Redact) > 0 {
		r, err := middleware.NewRedactor(cfg.Sink.Redact)
		if err != nil {
			return fmt.Errorf("sink: %w", err)
		}
		a.Sink = r.Results()(a.Sink)
		a.Failures = r.Failures()(a.Failures)
	}
	return nil
}

func (a *Assembly) connect(ctx context.Context, rc config.RedisConfig) (*backend.Client, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", rc.Addr, err)
	}
	return client, nil
}
