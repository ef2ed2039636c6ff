package memory

import (
	"context"
	"sync"

	"github.com/aretw0/stagehand/pkg/domain"
)

// ResultSink implements ports.ResultSink in memory.
// Safe for concurrent use.
type ResultSink struct {
	mu      sync.RWMutex
	results []*domain.TrialResults
}

// NewResultSink creates an empty in-memory result sink.
func NewResultSink() *ResultSink {
	return &ResultSink{}
}

// Ship stores a copy of the results.
func (s *ResultSink) Ship(ctx context.Context, results *domain.TrialResults) error {
	// Copy to ensure isolation, similar to serialization
	cp := results.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, cp)
	return nil
}

// Shipped returns copies of everything shipped so far, in order.
func (s *ResultSink) Shipped(ctx context.Context) ([]*domain.TrialResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TrialResults, len(s.results))
	for i, r := range s.results {
		out[i] = r.Clone()
	}
	return out, nil
}

// Len returns the number of shipped results.
func (s *ResultSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// FailureLog implements ports.FailureLog in memory.
// Safe for concurrent use.
type FailureLog struct {
	mu       sync.RWMutex
	failures []domain.Failure
}

// NewFailureLog creates an empty in-memory failure log.
func NewFailureLog() *FailureLog {
	return &FailureLog{}
}

// Log records the failure. The state snapshot is copied.
func (l *FailureLog) Log(ctx context.Context, failure domain.Failure) error {
	if failure.State != nil {
		failure.State = failure.State.Clone()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, failure)
	return nil
}

// Failures returns a copy of the recorded failures, in order.
func (l *FailureLog) Failures() []domain.Failure {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Failure, len(l.failures))
	copy(out, l.failures)
	return out
}
