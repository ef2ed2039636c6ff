package domain

// Field constants shared by stages, sinks and configuration files.
const (
	// KeyTrialResults is the update key whose value is appended to the trial's
	// results accumulator instead of being merged into the trial state.
	KeyTrialResults = "trial_results"

	// KeyResources is the state key under which the built-in resource stages keep
	// the trial's resource container.
	KeyResources = "resources"
)

// Metadata keys stamped by the trial on its results.
const (
	MetaTrialID = "trial_id"
	MetaSlot    = "slot"
	MetaOutcome = "outcome"
)

// Values of MetaOutcome.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
	OutcomeReset     = "reset"
)
