package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Kind identifies a control outcome.
type Kind int

const (
	KindIgnore Kind = iota
	KindStageReset
	KindStageAbort
	KindTrialReset
	KindTrialAbort
	KindExperimentReset
	KindExperimentAbort
)

var kindNames = map[Kind]string{
	KindIgnore:          "ignore",
	KindStageReset:      "stage_reset",
	KindStageAbort:      "stage_abort",
	KindTrialReset:      "trial_reset",
	KindTrialAbort:      "trial_abort",
	KindExperimentReset: "experiment_reset",
	KindExperimentAbort: "experiment_abort",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Tier reports which entity is expected to handle the outcome.
func (k Kind) Tier() Tier {
	switch k {
	case KindStageReset, KindStageAbort:
		return TierStage
	case KindTrialReset, KindTrialAbort:
		return TierTrial
	case KindExperimentReset, KindExperimentAbort:
		return TierExperiment
	default:
		return TierAny
	}
}

// ParseKind converts a snake_case name (as used in configuration files) into a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
}

// Tier names the layer of the orchestrator an outcome or failure belongs to.
type Tier string

const (
	TierStage      Tier = "stage"
	TierTrial      Tier = "trial"
	TierExperiment Tier = "experiment"
	TierAny        Tier = "any"
)

// Outcome is an intentional control signal. It travels as an error so stage
// implementations can return it from Start/IsDone like any other failure.
type Outcome struct {
	Kind  Kind
	Level slog.Level
	Cause error
}

// Sentinel outcomes, usable with errors.Is and as return values.
var (
	ErrIgnore          = &Outcome{Kind: KindIgnore, Level: slog.LevelError}
	ErrStageReset      = &Outcome{Kind: KindStageReset, Level: slog.LevelError}
	ErrStageAbort      = &Outcome{Kind: KindStageAbort, Level: slog.LevelError}
	ErrTrialReset      = &Outcome{Kind: KindTrialReset, Level: slog.LevelError}
	ErrTrialAbort      = &Outcome{Kind: KindTrialAbort, Level: slog.LevelError}
	ErrExperimentReset = &Outcome{Kind: KindExperimentReset, Level: slog.LevelError}
	ErrExperimentAbort = &Outcome{Kind: KindExperimentAbort, Level: slog.LevelError}
)

// Raise builds a new outcome of the given kind wrapping cause (which may be nil).
func Raise(kind Kind, cause error) *Outcome {
	return &Outcome{Kind: kind, Level: slog.LevelError, Cause: cause}
}

// WithLevel returns a copy of the outcome logged at the given severity.
func (o *Outcome) WithLevel(level slog.Level) *Outcome {
	cp := *o
	cp.Level = level
	return &cp
}

func (o *Outcome) Error() string {
	if o.Cause != nil {
		return o.Kind.String() + ": " + o.Cause.Error()
	}
	return o.Kind.String()
}

func (o *Outcome) Unwrap() error {
	return o.Cause
}

// Is matches any outcome of the same kind, so errors.Is(err, ErrTrialReset)
// holds for every trial reset regardless of cause or level.
func (o *Outcome) Is(target error) bool {
	t, ok := target.(*Outcome)
	if !ok {
		return false
	}
	return t.Kind == o.Kind
}

// KindOf returns the kind of the outermost outcome in err's chain.
func KindOf(err error) (Kind, bool) {
	var o *Outcome
	if errors.As(err, &o) {
		return o.Kind, true
	}
	return 0, false
}

// LevelOf returns the severity an error should be logged at.
// Plain errors are logged at Error level.
func LevelOf(err error) slog.Level {
	var o *Outcome
	if errors.As(err, &o) {
		return o.Level
	}
	return slog.LevelError
}
