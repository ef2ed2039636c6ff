package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTrialStart    EventType = "trial_start"
	EventTrialFinish   EventType = "trial_finish"
	EventStageEnter    EventType = "stage_enter"
	EventStageLeave    EventType = "stage_leave"
	EventStageReset    EventType = "stage_reset"
	EventEscalation    EventType = "escalation"
	EventResultsShip   EventType = "results_shipped"
	EventQueueAdvanced EventType = "queue_advanced"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	TrialID   string    `json:"trial_id,omitempty"`
	Slot      int       `json:"slot"`
}

// TrialEvent represents the start or the end of one trial run.
type TrialEvent struct {
	EventBase
	// Outcome is one of the Outcome* values; empty on start.
	Outcome string `json:"outcome,omitempty"`
}

// StageEvent represents a stage boundary inside a trial.
type StageEvent struct {
	EventBase
	Stage      string        `json:"stage"`
	StageIndex int           `json:"stage_index"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
}

// EscalationEvent records a failure translated by an escalation policy.
// Outcome is nil when the policy was exhausted and the failure escalated unchanged.
type EscalationEvent struct {
	EventBase
	Tier    Tier   `json:"tier"`
	Entity  string `json:"entity"`
	Outcome *Kind  `json:"outcome,omitempty"`
	Err     error  `json:"-"`
}

// QueueEvent reports the pending queue depth after the experiment consumed an entry.
type QueueEvent struct {
	EventBase
	Pending int `json:"pending"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
// Every field is optional.
type LifecycleHooks struct {
	OnTrialStart   func(context.Context, *TrialEvent)
	OnTrialFinish  func(context.Context, *TrialEvent)
	OnStageEnter   func(context.Context, *StageEvent)
	OnStageLeave   func(context.Context, *StageEvent)
	OnStageReset   func(context.Context, *StageEvent)
	OnEscalation   func(context.Context, *EscalationEvent)
	OnResultsShip  func(context.Context, *TrialEvent)
	OnQueueAdvance func(context.Context, *QueueEvent)
}

// Merge returns hooks that call h first and then other, for every callback set on either.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTrialStart:   chain(h.OnTrialStart, other.OnTrialStart),
		OnTrialFinish:  chain(h.OnTrialFinish, other.OnTrialFinish),
		OnStageEnter:   chain(h.OnStageEnter, other.OnStageEnter),
		OnStageLeave:   chain(h.OnStageLeave, other.OnStageLeave),
		OnStageReset:   chain(h.OnStageReset, other.OnStageReset),
		OnEscalation:   chain(h.OnEscalation, other.OnEscalation),
		OnResultsShip:  chain(h.OnResultsShip, other.OnResultsShip),
		OnQueueAdvance: chain(h.OnQueueAdvance, other.OnQueueAdvance),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
