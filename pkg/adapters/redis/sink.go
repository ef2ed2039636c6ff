package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/stagehand/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Sink ships trial results and failures to Redis lists.
// Results go to prefix+"results"; failures go to prefix+"failures",
// trimmed to the most recent maxFailures entries.
type Sink struct {
	client      *backend.Client
	prefix      string
	maxFailures int64
}

type Option func(*Sink)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Sink) {
		s.prefix = prefix
	}
}

// WithMaxFailures bounds the failure list. Zero keeps everything.
func WithMaxFailures(n int64) Option {
	return func(s *Sink) {
		s.maxFailures = n
	}
}

// New creates a new Redis sink with its own client.
func New(address, password string, db int, opts ...Option) *Sink {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis sink from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Sink {
	sink := &Sink{
		client:      client,
		prefix:      "stagehand:",
		maxFailures: 10000,
	}

	for _, opt := range opts {
		opt(sink)
	}

	return sink
}

func (s *Sink) resultsKey() string {
	return s.prefix + "results"
}

func (s *Sink) failuresKey() string {
	return s.prefix + "failures"
}

// Ship appends the results to the results list.
func (s *Sink) Ship(ctx context.Context, results *domain.TrialResults) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := s.client.RPush(ctx, s.resultsKey(), data).Err(); err != nil {
		return fmt.Errorf("failed to ship results to redis: %w", err)
	}
	return nil
}

// Shipped reads back every result shipped under the prefix.
func (s *Sink) Shipped(ctx context.Context) ([]*domain.TrialResults, error) {
	vals, err := s.client.LRange(ctx, s.resultsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read results from redis: %w", err)
	}

	out := make([]*domain.TrialResults, 0, len(vals))
	for _, v := range vals {
		var r domain.TrialResults
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
		out = append(out, &r)
	}
	return out, nil
}

// Log appends the failure to the failure list.
func (s *Sink) Log(ctx context.Context, failure domain.Failure) error {
	if failure.Error == "" && failure.Err != nil {
		failure.Error = failure.Err.Error()
	}
	data, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("failed to marshal failure: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.failuresKey(), data)
	if s.maxFailures > 0 {
		pipe.LTrim(ctx, s.failuresKey(), -s.maxFailures, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to log failure to redis: %w", err)
	}
	return nil
}

// Failures reads back the logged failures, oldest first.
func (s *Sink) Failures(ctx context.Context) ([]domain.Failure, error) {
	vals, err := s.client.LRange(ctx, s.failuresKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read failures from redis: %w", err)
	}

	out := make([]domain.Failure, 0, len(vals))
	for _, v := range vals {
		var f domain.Failure
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failure: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Close closes the redis client.
func (s *Sink) Close() error {
	return s.client.Close()
}
