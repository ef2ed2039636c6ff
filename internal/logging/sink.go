package logging

import (
	"context"
	"log/slog"

	"github.com/aretw0/stagehand/pkg/domain"
)

// FailureLog implements ports.FailureLog by writing each failure as one log record
// at the failure's own severity.
type FailureLog struct {
	Logger *slog.Logger
}

// NewFailureLog creates a failure log writing to logger. A nil logger discards everything.
func NewFailureLog(logger *slog.Logger) *FailureLog {
	if logger == nil {
		logger = NewNop()
	}
	return &FailureLog{Logger: logger}
}

// Log emits the failure.
func (l *FailureLog) Log(ctx context.Context, f domain.Failure) error {
	msg := f.Error
	if msg == "" && f.Err != nil {
		msg = f.Err.Error()
	}
	l.Logger.Log(ctx, f.Level, "failure intercepted",
		"tier", f.Tier,
		"entity", f.Entity,
		"trial_id", f.TrialID,
		"slot", f.Slot,
		"stage_index", f.StageIndex,
		"err", msg,
	)
	return nil
}

// ResultSink implements ports.ResultSink by logging every shipped result.
// Used for dry runs where nothing should be persisted.
type ResultSink struct {
	Logger *slog.Logger
}

// NewResultSink creates a result sink writing to logger.
func NewResultSink(logger *slog.Logger) *ResultSink {
	if logger == nil {
		logger = NewNop()
	}
	return &ResultSink{Logger: logger}
}

// Ship logs the results at Info level.
func (s *ResultSink) Ship(ctx context.Context, results *domain.TrialResults) error {
	s.Logger.InfoContext(ctx, "results shipped",
		"trial_id", results.Metadata[domain.MetaTrialID],
		"outcome", results.Metadata[domain.MetaOutcome],
		"items", len(results.Data),
		"data", results.Data,
	)
	return nil
}
