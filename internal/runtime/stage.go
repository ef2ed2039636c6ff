package runtime

import (
	"fmt"

	"github.com/aretw0/stagehand/pkg/escalation"
	"github.com/aretw0/stagehand/pkg/ports"
)

// Mode selects how a trial drives a stage. It is fixed at construction.
type Mode int

const (
	// ModePollable stages are started once and then polled with IsDone.
	ModePollable Mode = iota
	// ModeBlocking stages do all their work inside Start.
	ModeBlocking
)

func (m Mode) String() string {
	if m == ModeBlocking {
		return "blocking"
	}
	return "pollable"
}

// Stage binds a stage implementation to a name, a mode and a private escalation policy.
type Stage struct {
	name   string
	mode   Mode
	impl   ports.Stage
	poller ports.PollingStage
	policy *escalation.Policy
}

// NewPollable creates a stage that is started once and then polled until done.
func NewPollable(name string, impl ports.PollingStage, entries ...escalation.Entry) *Stage {
	return &Stage{
		name:   name,
		mode:   ModePollable,
		impl:   impl,
		poller: impl,
		policy: escalation.New(entries...),
	}
}

// NewBlocking creates a stage whose Start runs to completion.
func NewBlocking(name string, impl ports.Stage, entries ...escalation.Entry) *Stage {
	return &Stage{
		name:   name,
		mode:   ModeBlocking,
		impl:   impl,
		policy: escalation.New(entries...),
	}
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// Mode returns the stage mode.
func (s *Stage) Mode() Mode { return s.mode }

// Policy returns the stage's escalation policy.
func (s *Stage) Policy() *escalation.Policy { return s.policy }

// Clone returns a stage sharing the implementation but owning a copy of the policy.
func (s *Stage) Clone() *Stage {
	cp := *s
	cp.policy = s.policy.Clone()
	return &cp
}

// StageSpec describes how to build a stage. Build is called once per trial slot so
// every slot gets its own implementation value.
type StageSpec struct {
	Name     string
	Blocking bool
	Build    func() (ports.Stage, error)
}

// Instantiate builds the stage with the given escalation policy.
func (s StageSpec) Instantiate(entries ...escalation.Entry) (*Stage, error) {
	if s.Build == nil {
		return nil, fmt.Errorf("stage %q has no builder", s.Name)
	}
	impl, err := s.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build stage %q: %w", s.Name, err)
	}
	if s.Blocking {
		return NewBlocking(s.Name, impl, entries...), nil
	}
	poller, ok := impl.(ports.PollingStage)
	if !ok {
		return nil, fmt.Errorf("stage %q is pollable but %T has no IsDone", s.Name, impl)
	}
	return NewPollable(s.Name, poller, entries...), nil
}
