package ports

import (
	"context"

	"github.com/aretw0/stagehand/pkg/domain"
)

// ResultSink ships trial results to storage or transport.
// The experiment hands it a private copy; the sink may retain it.
type ResultSink interface {
	Ship(ctx context.Context, results *domain.TrialResults) error
}

// ResultReader is implemented by sinks that can read back what they shipped.
// It is used by the contract tests.
type ResultReader interface {
	Shipped(ctx context.Context) ([]*domain.TrialResults, error)
}

// FailureLog records unexpected failures for telemetry.
type FailureLog interface {
	Log(ctx context.Context, failure domain.Failure) error
}
