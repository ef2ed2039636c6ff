package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/escalation"
)

// Experiment owns a pool of trial slots and feeds them argument sets from a queue.
type Experiment struct {
	settings

	slots  []*Trial
	queue  *ArgQueue
	policy *escalation.Policy
	errors []int
}

// NewExperiment builds one trial slot per instance configuration. Each slot starts
// from base merged with its instance configuration and gets private stage values
// built from specs.
func NewExperiment(base domain.State, instances []domain.State, specs []StageSpec, queue *ArgQueue, opts ...Option) (*Experiment, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	if len(instances) == 0 {
		return nil, domain.ErrNoInstances
	}
	if len(specs) == 0 {
		return nil, domain.ErrNoStages
	}
	if s.stagePolicies != nil && len(s.stagePolicies) != len(specs) {
		return nil, fmt.Errorf("got %d stage policies for %d stages", len(s.stagePolicies), len(specs))
	}
	if queue == nil {
		queue = NewArgQueue()
	}

	e := &Experiment{
		settings: s,
		queue:    queue,
		policy:   escalation.New(s.policy...),
		errors:   make([]int, len(instances)),
	}

	for i, instance := range instances {
		stages := make([]*Stage, len(specs))
		for j, spec := range specs {
			entries := s.stagePolicy
			if s.stagePolicies != nil {
				entries = s.stagePolicies[j]
			}
			st, err := spec.Instantiate(entries...)
			if err != nil {
				return nil, err
			}
			stages[j] = st
		}

		initial := base.Clone()
		if initial == nil {
			initial = domain.State{}
		}
		for k, v := range instance {
			initial[k] = v
		}
		e.slots = append(e.slots, newTrial(i, stages, initial, s))
	}
	return e, nil
}

// Run drives the trials until the queue is empty and every slot is done.
//
// Trial resets and aborts are absorbed. Run returns nil when all work is done,
// ctx.Err() on cancellation, an experiment-tier outcome (domain.ErrExperimentReset,
// domain.ErrExperimentAbort) for its caller to handle, or an unexpected failure
// once the experiment's own policy is exhausted.
func (e *Experiment) Run(ctx context.Context) error {
	e.logger.InfoContext(ctx, "experiment started", "slots", len(e.slots), "pending", e.queue.Len())

	index := 0
	for e.queue.Len() > 0 {
		if _, err := e.visit(ctx, index, true); err != nil {
			return e.stop(ctx, err)
		}
		index = (index + 1) % len(e.slots)
		if err := e.pause(ctx); err != nil {
			return err
		}
	}

	for {
		all := true
		for i := range e.slots {
			done, err := e.visit(ctx, i, false)
			if err != nil {
				return e.stop(ctx, err)
			}
			if !done {
				all = false
			}
		}
		if all {
			e.logger.InfoContext(ctx, "experiment finished", "errors", e.Errors())
			return nil
		}
		if err := e.pause(ctx); err != nil {
			return err
		}
	}
}

// visit steps one slot and handles its outcome. In the fill phase a finished slot
// receives the next pending argument set.
func (e *Experiment) visit(ctx context.Context, i int, fill bool) (bool, error) {
	trial := e.slots[i]

	var done bool
	var results *domain.TrialResults
	err := e.guard(trial).Call(ctx, func() error {
		var err error
		done, results, err = trial.Step(ctx)
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrTrialReset):
		e.errors[i]++
		results = trial.Partial(domain.OutcomeReset)
		trial.Reset(ctx)
		done = false
	case errors.Is(err, domain.ErrTrialAbort):
		e.errors[i]++
		results = trial.Abort(ctx)
		done = true
	case errors.Is(err, domain.ErrExperimentReset), errors.Is(err, domain.ErrExperimentAbort):
		return false, err
	case errors.Is(err, domain.ErrIgnore):
		e.logger.DebugContext(ctx, "outcome ignored", "slot", i, "err", err)
		done = false
	case isOutcome(err):
		// A stage outcome raised by a trial policy has no stage left to handle it.
		e.logger.WarnContext(ctx, "stage outcome dropped at experiment tier", "slot", i, "err", err)
		done = false
	default:
		return false, err
	}

	if results != nil {
		e.ship(ctx, trial, results)
	}

	if done && fill {
		if args, ok := e.queue.Pop(); ok {
			trial.Begin(ctx, args)
			if e.hooks.OnQueueAdvance != nil {
				e.hooks.OnQueueAdvance(ctx, &domain.QueueEvent{
					EventBase: trial.event(domain.EventQueueAdvanced),
					Pending:   e.queue.Len(),
				})
			}
			done = false
		}
	}
	return done, nil
}

func (e *Experiment) ship(ctx context.Context, trial *Trial, results *domain.TrialResults) {
	if e.sink != nil {
		if err := e.sink.Ship(ctx, results); err != nil {
			e.logger.ErrorContext(ctx, "failed to ship results", "trial_id", trial.id, "err", err)
			return
		}
	}
	if e.hooks.OnResultsShip != nil {
		outcome, _ := results.Metadata[domain.MetaOutcome].(string)
		e.hooks.OnResultsShip(ctx, &domain.TrialEvent{
			EventBase: trial.event(domain.EventResultsShip),
			Outcome:   outcome,
		})
	}
}

func (e *Experiment) guard(trial *Trial) *escalation.Guard {
	return &escalation.Guard{
		Tier:        domain.TierExperiment,
		Entity:      "experiment",
		Policy:      e.policy,
		Passthrough: escalation.ExperimentPassthrough,
		Logger:      e.logger.With("trial_id", trial.id, "slot", trial.slot),
		Report: func(ctx context.Context, err error) {
			trial.report(ctx, domain.TierExperiment, "experiment", err)
		},
		OnEscalate: func(ctx context.Context, err error, outcome *domain.Kind) {
			if e.hooks.OnEscalation == nil {
				return
			}
			e.hooks.OnEscalation(ctx, &domain.EscalationEvent{
				EventBase: trial.event(domain.EventEscalation),
				Tier:      domain.TierExperiment,
				Entity:    "experiment",
				Outcome:   outcome,
				Err:       err,
			})
		},
	}
}

func (e *Experiment) stop(ctx context.Context, err error) error {
	e.logger.Log(ctx, domain.LevelOf(err), "experiment stopped", "err", err)
	return err
}

func (e *Experiment) pause(ctx context.Context) error {
	if e.interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Slots returns the trial slots in index order.
func (e *Experiment) Slots() []*Trial { return e.slots }

// Queue returns the pending argument-set queue.
func (e *Experiment) Queue() *ArgQueue { return e.queue }

// Policy returns the experiment's own escalation policy.
func (e *Experiment) Policy() *escalation.Policy { return e.policy }

// Errors returns a copy of the per-slot counters of absorbed trial resets and aborts.
func (e *Experiment) Errors() []int {
	out := make([]int, len(e.errors))
	copy(out, e.errors)
	return out
}
