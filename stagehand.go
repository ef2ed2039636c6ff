package stagehand

import (
	"log/slog"
	"time"

	"github.com/aretw0/stagehand/internal/runtime"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/escalation"
	"github.com/aretw0/stagehand/pkg/ports"
)

// The runtime types are re-exported so library users never import internal packages.
type (
	// Experiment owns the trial slots and the scheduling loop.
	Experiment = runtime.Experiment
	// Trial is one slot's multi-stage state machine.
	Trial = runtime.Trial
	// Stage is a stage implementation bound to its mode and escalation policy.
	Stage = runtime.Stage
	// StageSpec builds a private stage for every slot.
	StageSpec = runtime.StageSpec
	// ArgQueue is the FIFO of pending argument sets.
	ArgQueue = runtime.ArgQueue
	// Option configures experiments and trials.
	Option = runtime.Option
)

// NewExperiment builds one trial slot per instance configuration.
func NewExperiment(base domain.State, instances []domain.State, specs []StageSpec, queue *ArgQueue, opts ...Option) (*Experiment, error) {
	return runtime.NewExperiment(base, instances, specs, queue, opts...)
}

// NewTrial creates a standalone trial. Call Begin on it before stepping.
func NewTrial(slot int, stages []*Stage, initial domain.State, opts ...Option) *Trial {
	return runtime.NewTrial(slot, stages, initial, opts...)
}

// NewPollable wraps a stage whose work completes over several IsDone polls.
func NewPollable(name string, impl ports.PollingStage, entries ...escalation.Entry) *Stage {
	return runtime.NewPollable(name, impl, entries...)
}

// NewBlocking wraps a stage whose Start runs to completion.
func NewBlocking(name string, impl ports.Stage, entries ...escalation.Entry) *Stage {
	return runtime.NewBlocking(name, impl, entries...)
}

// NewArgQueue creates a queue holding items in order.
func NewArgQueue(items ...domain.ArgSet) *ArgQueue { return runtime.NewArgQueue(items...) }

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option { return runtime.WithLogger(logger) }

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return runtime.WithLifecycleHooks(hooks)
}

// WithFailureLog sets where intercepted failures are recorded.
func WithFailureLog(log ports.FailureLog) Option { return runtime.WithFailureLog(log) }

// WithResultSink sets where finished trial results are shipped.
func WithResultSink(sink ports.ResultSink) Option { return runtime.WithResultSink(sink) }

// WithInterval sets the delay between scheduler passes.
func WithInterval(d time.Duration) Option { return runtime.WithInterval(d) }

// WithPolicy sets the experiment's own escalation policy.
func WithPolicy(entries ...escalation.Entry) Option { return runtime.WithPolicy(entries...) }

// WithTrialPolicy sets the escalation policy of every trial.
func WithTrialPolicy(entries ...escalation.Entry) Option {
	return runtime.WithTrialPolicy(entries...)
}

// WithStagePolicy sets one escalation policy copied to every stage.
func WithStagePolicy(entries ...escalation.Entry) Option {
	return runtime.WithStagePolicy(entries...)
}

// WithStagePolicies sets one escalation policy per stage, in stage order.
func WithStagePolicies(policies ...[]escalation.Entry) Option {
	return runtime.WithStagePolicies(policies...)
}
