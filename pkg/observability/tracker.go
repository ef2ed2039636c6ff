package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/stagehand/pkg/domain"
)

// SlotStatus is the last known activity of one experiment slot.
type SlotStatus struct {
	Slot       int       `json:"slot"`
	TrialID    string    `json:"trial_id,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	StageIndex int       `json:"stage_index"`
	Done       bool      `json:"done"`
	Outcome    string    `json:"outcome,omitempty"`
	Completed  int       `json:"completed"`
	Aborted    int       `json:"aborted"`
	Resets     int       `json:"resets"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Status is a point-in-time view of the whole experiment.
type Status struct {
	StartedAt   time.Time    `json:"started_at"`
	Pending     int          `json:"pending"`
	Shipped     int          `json:"shipped"`
	Escalations int          `json:"escalations"`
	Slots       []SlotStatus `json:"slots"`
}

// Tracker maintains a Status from lifecycle events.
// Safe for concurrent use: hooks run on the scheduler loop while readers poll Snapshot.
type Tracker struct {
	mu     sync.RWMutex
	status Status
	now    func() time.Time
}

// NewTracker creates a tracker for the given number of slots and initial queue depth.
func NewTracker(slots, pending int) *Tracker {
	t := &Tracker{now: time.Now}
	t.status.StartedAt = t.now()
	t.status.Pending = pending
	t.status.Slots = make([]SlotStatus, slots)
	for i := range t.status.Slots {
		t.status.Slots[i] = SlotStatus{Slot: i, Done: true}
	}
	return t
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := t.status
	cp.Slots = make([]SlotStatus, len(t.status.Slots))
	copy(cp.Slots, t.status.Slots)
	return cp
}

// Hooks returns lifecycle hooks that keep the tracker current.
func (t *Tracker) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTrialStart: func(_ context.Context, e *domain.TrialEvent) {
			t.update(e.Slot, func(s *SlotStatus) {
				s.TrialID = e.TrialID
				s.Stage = ""
				s.StageIndex = 0
				s.Done = false
				s.Outcome = ""
			})
		},
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			t.update(e.Slot, func(s *SlotStatus) {
				s.Stage = e.Stage
				s.StageIndex = e.StageIndex
			})
		},
		OnTrialFinish: func(_ context.Context, e *domain.TrialEvent) {
			t.update(e.Slot, func(s *SlotStatus) {
				s.Done = true
				s.Outcome = e.Outcome
				switch e.Outcome {
				case domain.OutcomeCompleted:
					s.Completed++
				case domain.OutcomeAborted:
					s.Aborted++
				}
			})
		},
		OnResultsShip: func(_ context.Context, e *domain.TrialEvent) {
			t.mu.Lock()
			t.status.Shipped++
			t.mu.Unlock()
			if e.Outcome == domain.OutcomeReset {
				t.update(e.Slot, func(s *SlotStatus) { s.Resets++ })
			}
		},
		OnEscalation: func(context.Context, *domain.EscalationEvent) {
			t.mu.Lock()
			t.status.Escalations++
			t.mu.Unlock()
		},
		OnQueueAdvance: func(_ context.Context, e *domain.QueueEvent) {
			t.mu.Lock()
			t.status.Pending = e.Pending
			t.mu.Unlock()
		},
	}
}

func (t *Tracker) update(slot int, fn func(*SlotStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.status.Slots) <= slot {
		t.status.Slots = append(t.status.Slots, SlotStatus{Slot: len(t.status.Slots), Done: true})
	}
	s := &t.status.Slots[slot]
	fn(s)
	s.UpdatedAt = t.now()
}
