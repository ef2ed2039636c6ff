package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Update is a partial state returned by a stage, or one entry of a trial's stage arguments.
type Update map[string]any

// State holds the variable data of one trial run.
type State map[string]any

// Clone returns a shallow copy of the state. Values themselves are not copied.
func (s State) Clone() State {
	cp := make(State, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

// Merge copies every key of u into the state, except KeyTrialResults.
func (s State) Merge(u Update) {
	for k, v := range u {
		if k == KeyTrialResults {
			continue
		}
		s[k] = v
	}
}

// Decode copies the state into out (a pointer to a struct) using mapstructure tags.
// Weak typing is enabled so values loaded from YAML or JSON ("3", 3.0) decode into ints.
func (s State) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to build state decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(s)); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	return nil
}

// Clone returns a shallow copy of the update.
func (u Update) Clone() Update {
	cp := make(Update, len(u))
	for k, v := range u {
		cp[k] = v
	}
	return cp
}

// ArgSet is one entry of the experiment's pending queue: everything needed to start one trial run.
type ArgSet struct {
	// StageArgs holds one partial state per stage, merged into the trial state when that stage begins.
	StageArgs []Update `yaml:"stage_args" json:"stage_args"`

	// Overrides is merged into the slot's initial state for this run only.
	Overrides Update `yaml:"overrides" json:"overrides,omitempty"`
}
