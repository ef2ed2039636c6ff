package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/stagehand/internal/logging"
	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/escalation"
	"github.com/aretw0/stagehand/pkg/ports"
)

// DefaultInterval is the pause between two scheduler steps.
const DefaultInterval = 10 * time.Millisecond

type settings struct {
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	failures ports.FailureLog
	sink     ports.ResultSink
	interval time.Duration

	policy        []escalation.Entry
	trialPolicy   []escalation.Entry
	stagePolicy   []escalation.Entry
	stagePolicies [][]escalation.Entry
}

func defaultSettings() settings {
	return settings{
		logger:   logging.NewNop(),
		interval: DefaultInterval,
	}
}

// Option configures a Trial or an Experiment.
type Option func(*settings)

// WithLogger sets the logger used for intercepted failures and scheduling traces.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

// WithFailureLog sets where intercepted failures are reported.
func WithFailureLog(log ports.FailureLog) Option {
	return func(s *settings) {
		s.failures = log
	}
}

// WithResultSink sets where the experiment ships trial results.
func WithResultSink(sink ports.ResultSink) Option {
	return func(s *settings) {
		s.sink = sink
	}
}

// WithInterval sets the fixed delay between scheduler steps. Zero disables it.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.interval = d
		}
	}
}

// WithPolicy sets the experiment's own escalation policy.
func WithPolicy(entries ...escalation.Entry) Option {
	return func(s *settings) {
		s.policy = entries
	}
}

// WithTrialPolicy sets the escalation policy given to every trial.
func WithTrialPolicy(entries ...escalation.Entry) Option {
	return func(s *settings) {
		s.trialPolicy = entries
	}
}

// WithStagePolicy sets one escalation policy copied to every stage.
func WithStagePolicy(entries ...escalation.Entry) Option {
	return func(s *settings) {
		s.stagePolicy = entries
		s.stagePolicies = nil
	}
}

// WithStagePolicies sets one escalation policy per stage, in stage order.
// The number of policies must match the number of stages.
func WithStagePolicies(policies ...[]escalation.Entry) Option {
	return func(s *settings) {
		s.stagePolicies = policies
		s.stagePolicy = nil
	}
}
