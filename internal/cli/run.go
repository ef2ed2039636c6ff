package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/aretw0/stagehand"
	"github.com/aretw0/stagehand/pkg/adapters/http"
	"github.com/aretw0/stagehand/pkg/config"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/observability"
	"github.com/aretw0/stagehand/pkg/registry"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	ConfigPath string

	// MetricsAddr overrides metrics.addr from the configuration when set.
	MetricsAddr string
	// MaxRestarts overrides max_restarts when zero or positive.
	MaxRestarts int

	DryRun bool
	Debug  bool
	Quiet  bool

	// Registry resolves stage kinds. Nil uses the built-in kinds.
	Registry *registry.Registry

	// Out receives the banner and summary; Err receives logs. Nil means Stdout and Stderr.
	Out io.Writer
	Err io.Writer
}

func (o RunOptions) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o RunOptions) errOut() io.Writer {
	if o.Err == nil {
		return os.Stderr
	}
	return o.Err
}

// Execute handles the run command: it runs the experiment until completion or
// interruption, prints the summary and returns an *ExitError on failure.
func Execute(opts RunOptions) error {
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if !opts.Quiet {
		PrintBanner(opts.out(), stagehand.Version)
	}

	summary, err := Run(sigCtx, opts)
	if summary != nil && !opts.Quiet {
		PrintSummary(opts.out(), summary)
	}
	if sig := sigCtx.Signal(); sig != nil && !opts.Quiet {
		printSystemMessage(opts.out(), "Interrupted by %s.", sig)
	}
	return handleExecutionError(err)
}

// Run loads the configuration and drives the experiment. An ExperimentReset
// rebuilds the experiment from scratch, up to the configured number of restarts.
// The returned summary covers every attempt and is non-nil once the
// configuration has loaded.
func Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if opts.MaxRestarts >= 0 {
		cfg.MaxRestarts = opts.MaxRestarts
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}
	logger := cfg.Logger(opts.errOut())

	metrics := observability.NewMetrics()
	status := &liveStatus{}
	if cfg.Metrics.Addr != "" {
		srvCtx, stop := context.WithCancel(ctx)
		defer stop()
		go serveStatus(srvCtx, cfg.Metrics.Addr, status, metrics, logger)
	}

	summary := &Summary{Config: opts.ConfigPath, StartedAt: time.Now(), Slots: len(cfg.Instances)}
	for {
		runErr := runOnce(ctx, cfg, opts, logger, metrics, status, summary)
		if errors.Is(runErr, domain.ErrExperimentReset) && summary.Restarts < cfg.MaxRestarts {
			summary.Restarts++
			logger.WarnContext(ctx, "experiment reset, restarting",
				"restart", summary.Restarts, "max_restarts", cfg.MaxRestarts, "err", runErr)
			continue
		}
		summary.Elapsed = time.Since(summary.StartedAt)
		summary.Err = runErr
		return summary, runErr
	}
}

func runOnce(ctx context.Context, cfg *config.Config, opts RunOptions, logger *slog.Logger,
	metrics *observability.Metrics, status *liveStatus, summary *Summary) error {
	tracker := observability.NewTracker(len(cfg.Instances), len(cfg.Trials))
	status.tracker.Store(tracker)
	metrics.SetQueueDepth(len(cfg.Trials))

	hooks := metrics.Hooks().Merge(tracker.Hooks())
	if opts.Debug {
		hooks = hooks.Merge(createDebugHooks(logger))
	}

	a, err := stagehand.Build(ctx, cfg, stagehand.BuildOptions{
		Registry: opts.Registry,
		Logger:   logger,
		Hooks:    hooks,
		DryRun:   opts.DryRun,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close experiment resources", "err", err)
		}
	}()

	runErr := a.Experiment.Run(ctx)
	summary.add(tracker.Snapshot(), a.Experiment.Errors())
	return runErr
}

func serveStatus(ctx context.Context, addr string, status http.StatusSource, metrics *observability.Metrics, logger *slog.Logger) {
	handler := http.NewHandler(status, metrics.Registry, logger)
	if err := http.Serve(ctx, addr, handler, logger); err != nil {
		logger.Error("status server failed", "addr", addr, "err", err)
	}
}

// liveStatus serves the tracker of the current attempt.
type liveStatus struct {
	tracker atomic.Pointer[observability.Tracker]
}

func (s *liveStatus) Snapshot() observability.Status {
	if t := s.tracker.Load(); t != nil {
		return t.Snapshot()
	}
	return observability.Status{}
}
