package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// farFuture is the lease score used when leases never expire (2100-01-01).
// Scores are Unix milliseconds.
const farFuture = 4102444800000

// acquireScript prunes expired leases and adds a holder if the pool has room.
// KEYS[1] holders zset; ARGV: limit, now, expiry, token.
var acquireScript = backend.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
if redis.call("ZCARD", KEYS[1]) < tonumber(ARGV[1]) then
	redis.call("ZADD", KEYS[1], ARGV[3], ARGV[4])
	return 1
end
return 0
`)

// Semaphore implements ports.Semaphore on top of a Redis sorted set, so that
// several processes can arbitrate the same bounded resource.
// Each holder is a member scored by its lease expiry in Unix milliseconds.
type Semaphore struct {
	client *backend.Client
	key    string
	limit  int
	lease  time.Duration
	poll   time.Duration

	mu     sync.Mutex
	tokens []string // leases held by this instance, most recent last
}

// SemaphoreOption configures a Semaphore.
type SemaphoreOption func(*Semaphore)

// WithLease makes every unit expire after ttl if it is not released, so a crashed
// process cannot hold a resource forever. Zero (the default) disables expiry.
func WithLease(ttl time.Duration) SemaphoreOption {
	return func(s *Semaphore) {
		s.lease = ttl
	}
}

// WithPollInterval sets how often a blocking Acquire retries.
func WithPollInterval(d time.Duration) SemaphoreOption {
	return func(s *Semaphore) {
		s.poll = d
	}
}

// NewSemaphore creates a distributed semaphore named name with the given capacity.
// The sorted set is stored under prefix + "sem:" + name.
func NewSemaphore(client *backend.Client, prefix, name string, limit int, opts ...SemaphoreOption) *Semaphore {
	if limit < 1 {
		limit = 1
	}
	s := &Semaphore{
		client: client,
		key:    prefix + "sem:" + name,
		limit:  limit,
		poll:   100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewPool builds one distributed semaphore per entry of capacities.
func NewPool(client *backend.Client, prefix string, capacities map[string]int, opts ...SemaphoreOption) map[string]ports.Semaphore {
	pool := make(map[string]ports.Semaphore, len(capacities))
	for name, n := range capacities {
		pool[name] = NewSemaphore(client, prefix, name, n, opts...)
	}
	return pool
}

// Acquire takes one unit. Blocking acquisition polls Redis until a unit frees up.
func (s *Semaphore) Acquire(ctx context.Context, block bool, timeout time.Duration) (bool, error) {
	ok, err := s.tryAcquire(ctx)
	if err != nil || ok || !block {
		return ok, err
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-expired:
			return false, nil
		case <-ticker.C:
			ok, err := s.tryAcquire(ctx)
			if err != nil || ok {
				return ok, err
			}
			// Retry...
		}
	}
}

func (s *Semaphore) tryAcquire(ctx context.Context) (bool, error) {
	now := time.Now()
	expiry := int64(farFuture)
	if s.lease > 0 {
		expiry = now.Add(s.lease).UnixMilli()
	}
	token := uuid.NewString()

	res, err := acquireScript.Run(ctx, s.client, []string{s.key},
		s.limit,
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(expiry, 10),
		token,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis error acquiring %s: %w", s.key, err)
	}
	if res != 1 {
		return false, nil
	}

	s.mu.Lock()
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()
	return true, nil
}

// Release returns the most recently acquired unit held by this instance.
// A lease that already expired is treated as released.
func (s *Semaphore) Release(ctx context.Context) error {
	s.mu.Lock()
	if len(s.tokens) == 0 {
		s.mu.Unlock()
		return ports.ErrOverRelease
	}
	token := s.tokens[len(s.tokens)-1]
	s.tokens = s.tokens[:len(s.tokens)-1]
	s.mu.Unlock()

	if err := s.client.ZRem(ctx, s.key, token).Err(); err != nil {
		// Put the token back so the caller may retry.
		s.mu.Lock()
		s.tokens = append(s.tokens, token)
		s.mu.Unlock()
		return fmt.Errorf("redis error releasing %s: %w", s.key, err)
	}
	return nil
}

// InUse returns the number of live holders across all processes.
func (s *Semaphore) InUse(ctx context.Context) (int64, error) {
	return s.client.ZCount(ctx, s.key, "("+strconv.FormatInt(time.Now().UnixMilli(), 10), "+inf").Result()
}
