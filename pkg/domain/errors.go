package domain

import "errors"

// ErrUnknownOutcome is returned when an outcome name cannot be parsed.
var ErrUnknownOutcome = errors.New("unknown outcome")

// ErrNoStages is returned when a trial or experiment is built without stages.
var ErrNoStages = errors.New("no stages configured")

// ErrNoInstances is returned when an experiment is built without trial slots.
var ErrNoInstances = errors.New("no trial instances configured")
