package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/stagehand/pkg/domain"
)

// Sink implements ports.ResultSink and ports.FailureLog on the local filesystem.
// Each shipped value is appended as one JSON line and fsynced.
// Safe for concurrent use within one process.
type Sink struct {
	ResultsPath  string
	FailuresPath string

	mu sync.Mutex
}

// New creates a new Sink writing under dir.
// If dir is empty, it defaults to ".stagehand".
func New(dir string) *Sink {
	if dir == "" {
		dir = ".stagehand"
	}
	return &Sink{
		ResultsPath:  filepath.Join(dir, "results.jsonl"),
		FailuresPath: filepath.Join(dir, "failures.jsonl"),
	}
}

// Ship appends the results to the results file.
func (s *Sink) Ship(ctx context.Context, results *domain.TrialResults) error {
	return s.appendLine(s.ResultsPath, results)
}

// Log appends the failure to the failures file.
func (s *Sink) Log(ctx context.Context, failure domain.Failure) error {
	if failure.Error == "" && failure.Err != nil {
		failure.Error = failure.Err.Error()
	}
	return s.appendLine(s.FailuresPath, failure)
}

// Shipped reads back every result in the results file.
func (s *Sink) Shipped(ctx context.Context) ([]*domain.TrialResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.ResultsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.TrialResults{}, nil
		}
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	var out []*domain.TrialResults
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var r domain.TrialResults
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results line: %w", err)
		}
		out = append(out, &r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	return out, nil
}

func (s *Sink) appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to ensure sink directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}

	// Fsync to ensure durability
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to fsync %s: %w", path, err)
	}
	return f.Close()
}
