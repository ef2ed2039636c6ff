/*
Package ports defines the driven ports (interfaces) of the stagehand orchestrator.

These interfaces decouple the scheduling core from the collaborators it consumes:
stage implementations, result shipping, failure logging and the bounded resource
primitives shared across trials (and across processes).

# Key Interfaces

  - Stage / PollingStage: the business logic of one trial stage (blocking or pollable).
  - ResultSink: receives the results of every finished, aborted or reset trial.
  - FailureLog: receives every unexpected failure intercepted at a step boundary.
  - Semaphore: a bounded counting primitive behind one named resource.
*/
package ports
