package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/escalation"
	"github.com/google/uuid"
)

// Trial drives an ordered sequence of stages over a mutable state, one stage
// boundary per Step call.
//
// A freshly constructed trial is done: it waits for Begin to hand it its first
// argument set. A Trial is not safe for concurrent use.
type Trial struct {
	settings

	slot   int
	id     string
	stages []*Stage
	policy *escalation.Policy

	initial    domain.State
	runInitial domain.State
	state      domain.State
	checkpoint domain.State
	stageArgs  []domain.Update

	index   int
	running bool
	done    bool
	entered bool
	since   time.Time

	results *domain.TrialResults
}

// NewTrial creates a trial for one experiment slot. The stages are cloned so the
// trial owns private copies of their escalation policies.
func NewTrial(slot int, stages []*Stage, initial domain.State, opts ...Option) *Trial {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return newTrial(slot, stages, initial, s)
}

func newTrial(slot int, stages []*Stage, initial domain.State, s settings) *Trial {
	owned := make([]*Stage, len(stages))
	for i, st := range stages {
		owned[i] = st.Clone()
	}
	if initial == nil {
		initial = domain.State{}
	}
	t := &Trial{
		settings:   s,
		slot:       slot,
		stages:     owned,
		policy:     escalation.New(s.trialPolicy...),
		initial:    initial.Clone(),
		runInitial: initial.Clone(),
		state:      initial.Clone(),
		checkpoint: initial.Clone(),
		done:       true,
		results:    domain.NewTrialResults(),
	}
	return t
}

// Begin starts a new independent run: overrides are merged into a fresh copy of the
// initial state, the stage arguments are replaced, counters and results are cleared
// and every escalation policy (trial and stages) is restored.
func (t *Trial) Begin(ctx context.Context, args domain.ArgSet) {
	t.id = uuid.NewString()
	t.runInitial = t.initial.Clone()
	t.runInitial.Merge(args.Overrides)
	t.stageArgs = args.StageArgs

	t.policy.Reset()
	for _, st := range t.stages {
		st.policy.Reset()
	}
	t.rewind()

	t.logger.DebugContext(ctx, "trial started", "trial_id", t.id, "slot", t.slot, "stages", len(t.stages))
	if t.hooks.OnTrialStart != nil {
		t.hooks.OnTrialStart(ctx, &domain.TrialEvent{EventBase: t.event(domain.EventTrialStart)})
	}
}

// Reset restarts the current run from its initial state. Escalation policies keep
// whatever budget they have left.
func (t *Trial) Reset(ctx context.Context) {
	t.rewind()
	t.logger.DebugContext(ctx, "trial reset", "trial_id", t.id, "slot", t.slot)
}

func (t *Trial) rewind() {
	t.state = t.runInitial.Clone()
	t.checkpoint = t.state.Clone()
	if len(t.stageArgs) > 0 {
		t.state.Merge(t.stageArgs[0])
	}
	t.index = 0
	t.running = false
	t.entered = false
	t.done = false
	t.results = domain.NewTrialResults()
}

// Abort force-marks the trial done, discarding its unfinished stages, and returns
// the partial results accumulated so far.
func (t *Trial) Abort(ctx context.Context) *domain.TrialResults {
	t.done = true
	t.running = false
	t.emitFinish(ctx, domain.OutcomeAborted)
	return t.stamp(domain.OutcomeAborted)
}

// Partial returns the results accumulated so far, stamped with outcome.
func (t *Trial) Partial(outcome string) *domain.TrialResults {
	return t.stamp(outcome)
}

// Step advances the trial by at most one stage boundary.
//
// It returns done == true once every stage has completed; results is non-nil only
// on the call that completed the trial. Unexpected failures are translated by the
// trial's escalation policy; intentional stage and trial outcomes propagate verbatim.
func (t *Trial) Step(ctx context.Context) (done bool, results *domain.TrialResults, err error) {
	g := t.guard(domain.TierTrial, "trial", t.policy, escalation.TrialPassthrough)
	err = g.Call(ctx, func() error {
		var stepErr error
		done, results, stepErr = t.step(ctx)
		return stepErr
	})
	if err != nil {
		return false, nil, err
	}
	return done, results, nil
}

func (t *Trial) step(ctx context.Context) (bool, *domain.TrialResults, error) {
	if t.done {
		return true, nil, nil
	}
	if t.index >= len(t.stages) {
		return t.complete(ctx), t.stamp(domain.OutcomeCompleted), nil
	}

	stage := t.stages[t.index]
	if !t.entered {
		t.entered = true
		t.since = time.Now()
		t.emitStage(ctx, t.hooks.OnStageEnter, domain.EventStageEnter, stage, 0)
	}

	if !t.running {
		t.checkpoint = t.state.Clone()

		complete, update, err := t.call(ctx, stage, stage.impl.Start)
		if err != nil {
			switch kind, _ := domain.KindOf(err); {
			case !isOutcome(err):
				return false, nil, err
			case kind == domain.KindStageAbort:
				t.advance(ctx, stage)
			case kind == domain.KindStageReset, kind == domain.KindIgnore:
				return false, nil, nil
			default:
				return false, nil, err
			}
		} else {
			t.apply(update)
			switch {
			case !complete:
			case stage.mode == ModeBlocking:
				t.advance(ctx, stage)
			default:
				t.running = true
			}
		}
	} else {
		complete, update, err := t.call(ctx, stage, stage.poller.IsDone)
		if err != nil {
			switch kind, _ := domain.KindOf(err); {
			case !isOutcome(err):
				return false, nil, err
			case kind == domain.KindStageAbort:
				t.advance(ctx, stage)
			case kind == domain.KindStageReset:
				t.state = t.checkpoint.Clone()
				t.running = false
				t.emitStage(ctx, t.hooks.OnStageReset, domain.EventStageReset, stage, 0)
				return false, nil, nil
			case kind == domain.KindIgnore:
				return false, nil, nil
			default:
				return false, nil, err
			}
		} else {
			t.apply(update)
			if complete {
				t.advance(ctx, stage)
			}
		}
	}

	if t.index == len(t.stages) {
		return t.complete(ctx), t.stamp(domain.OutcomeCompleted), nil
	}
	return false, nil, nil
}

// call runs one stage operation behind the stage's own guard.
func (t *Trial) call(ctx context.Context, stage *Stage, fn func(context.Context, domain.State) (bool, domain.Update, error)) (bool, domain.Update, error) {
	var complete bool
	var update domain.Update
	g := t.guard(domain.TierStage, stage.name, stage.policy, escalation.StagePassthrough)
	err := g.Call(ctx, func() error {
		var err error
		complete, update, err = fn(ctx, t.state.Clone())
		return err
	})
	if err != nil {
		return false, nil, err
	}
	return complete, update, nil
}

func (t *Trial) apply(update domain.Update) {
	if v, ok := update[domain.KeyTrialResults]; ok {
		t.results.Add(v)
	}
	t.state.Merge(update)
}

func (t *Trial) advance(ctx context.Context, stage *Stage) {
	t.emitStage(ctx, t.hooks.OnStageLeave, domain.EventStageLeave, stage, time.Since(t.since))
	t.index++
	if t.index < len(t.stageArgs) {
		t.state.Merge(t.stageArgs[t.index])
	}
	t.running = false
	t.entered = false
}

func (t *Trial) complete(ctx context.Context) bool {
	t.done = true
	t.logger.DebugContext(ctx, "trial completed", "trial_id", t.id, "slot", t.slot)
	t.emitFinish(ctx, domain.OutcomeCompleted)
	return true
}

func (t *Trial) stamp(outcome string) *domain.TrialResults {
	r := t.results.Clone()
	r.SetMetadata(domain.MetaTrialID, t.id)
	r.SetMetadata(domain.MetaSlot, t.slot)
	r.SetMetadata(domain.MetaOutcome, outcome)
	return r
}

func (t *Trial) guard(tier domain.Tier, entity string, policy *escalation.Policy, passthrough []domain.Kind) *escalation.Guard {
	return &escalation.Guard{
		Tier:        tier,
		Entity:      entity,
		Policy:      policy,
		Passthrough: passthrough,
		Logger:      t.logger.With("trial_id", t.id, "slot", t.slot),
		Report: func(ctx context.Context, err error) {
			t.report(ctx, tier, entity, err)
		},
		OnEscalate: func(ctx context.Context, err error, outcome *domain.Kind) {
			if t.hooks.OnEscalation == nil {
				return
			}
			t.hooks.OnEscalation(ctx, &domain.EscalationEvent{
				EventBase: t.event(domain.EventEscalation),
				Tier:      tier,
				Entity:    entity,
				Outcome:   outcome,
				Err:       err,
			})
		},
	}
}

func (t *Trial) report(ctx context.Context, tier domain.Tier, entity string, err error) {
	if t.failures == nil {
		return
	}
	f := domain.Failure{
		Timestamp:  time.Now(),
		Tier:       tier,
		Entity:     entity,
		TrialID:    t.id,
		Slot:       t.slot,
		StageIndex: t.index,
		State:      t.state.Clone(),
		Error:      err.Error(),
		Level:      domain.LevelOf(err),
		Err:        err,
	}
	if logErr := t.failures.Log(ctx, f); logErr != nil {
		t.logger.WarnContext(ctx, "failed to record failure", "err", logErr)
	}
}

func (t *Trial) event(typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      typ,
		TrialID:   t.id,
		Slot:      t.slot,
	}
}

func (t *Trial) emitStage(ctx context.Context, hook func(context.Context, *domain.StageEvent), typ domain.EventType, stage *Stage, elapsed time.Duration) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.StageEvent{
		EventBase:  t.event(typ),
		Stage:      stage.name,
		StageIndex: t.index,
		Elapsed:    elapsed,
	})
}

func (t *Trial) emitFinish(ctx context.Context, outcome string) {
	if t.hooks.OnTrialFinish == nil {
		return
	}
	t.hooks.OnTrialFinish(ctx, &domain.TrialEvent{EventBase: t.event(domain.EventTrialFinish), Outcome: outcome})
}

func isOutcome(err error) bool {
	var o *domain.Outcome
	return errors.As(err, &o)
}

// ID returns the identifier of the current run. It changes on every Begin.
func (t *Trial) ID() string { return t.id }

// Slot returns the experiment slot index of the trial.
func (t *Trial) Slot() int { return t.slot }

// Done reports whether the trial has no more work.
func (t *Trial) Done() bool { return t.done }

// Running reports whether the current stage has been started and is being polled.
func (t *Trial) Running() bool { return t.running }

// StageIndex returns the position of the current stage.
func (t *Trial) StageIndex() int { return t.index }

// Stages returns the trial's stages.
func (t *Trial) Stages() []*Stage { return t.stages }

// Policy returns the trial's own escalation policy.
func (t *Trial) Policy() *escalation.Policy { return t.policy }

// State returns a copy of the trial state.
func (t *Trial) State() domain.State { return t.state.Clone() }
