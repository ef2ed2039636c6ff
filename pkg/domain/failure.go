package domain

import (
	"log/slog"
	"time"
)

// Failure describes an unexpected error intercepted at a step boundary.
// It is handed to the failure log before the owning entity's policy is consulted.
type Failure struct {
	Timestamp  time.Time  `json:"timestamp"`
	Tier       Tier       `json:"tier"`
	Entity     string     `json:"entity"`
	TrialID    string     `json:"trial_id,omitempty"`
	Slot       int        `json:"slot"`
	StageIndex int        `json:"stage_index"`
	State      State      `json:"state,omitempty"`
	Error      string     `json:"error"`
	Level      slog.Level `json:"level"`

	// Err is the original error; it is not serialized.
	Err error `json:"-"`
}
