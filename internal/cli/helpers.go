package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/stagehand/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()

	mu  sync.Mutex
	sig os.Signal
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Unlike signal.NotifyContext it remembers which signal arrived.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			sc.mu.Lock()
			sc.sig = sig
			sc.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sig
}

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// Exit codes.
const (
	ExitFailure = 1
	ExitAborted = 2
)

// handleExecutionError maps the result of a run to the error reported to the shell.
// Interruptions exit cleanly.
func handleExecutionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, domain.ErrExperimentAbort):
		return &ExitError{Code: ExitAborted, Err: err}
	default:
		return &ExitError{Code: ExitFailure, Err: err}
	}
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "enter stage", "slot", e.Slot, "trial_id", e.TrialID, "stage", e.Stage, "index", e.StageIndex)
		},
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "leave stage", "slot", e.Slot, "trial_id", e.TrialID, "stage", e.Stage, "elapsed", e.Elapsed)
		},
		OnStageReset: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "stage rolled back", "slot", e.Slot, "trial_id", e.TrialID, "stage", e.Stage)
		},
		OnEscalation: func(ctx context.Context, e *domain.EscalationEvent) {
			outcome := "escalated"
			if e.Outcome != nil {
				outcome = e.Outcome.String()
			}
			logger.DebugContext(ctx, "failure translated", "slot", e.Slot, "tier", e.Tier, "entity", e.Entity, "outcome", outcome)
		},
	}
}
