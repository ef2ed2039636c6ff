/*
Package domain contains the core domain models of the stagehand orchestrator.

It defines the control outcomes that drive the trial state machine, the mutable trial
state, the results accumulator and the observability events. This package is kept pure
and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Outcome: an intentional control signal (Abort/Reset/Ignore at Stage, Trial or Experiment tier).
  - State: the key/value trial state shared by the stages of one trial.
  - TrialResults: the ordered per-stage data plus metadata shipped to a result sink.
  - Failure: the record handed to the failure log when an unexpected error is intercepted.
*/
package domain
