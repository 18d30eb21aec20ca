package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wordgate/wordgate"
)

// DefaultKeyPrefix is used when NewRedisCodes is given an empty prefix.
const DefaultKeyPrefix = "wordgate:"

// attemptsFallbackTTL bounds counters created by submissions against
// identities that hold no pending code, so probes cannot accrete
// permanent keys.
const attemptsFallbackTTL = time.Hour

// RedisCodes is the Redis-backed CodeStore. Per identity it keeps three keys
// under the configured prefix:
//
//	{prefix}code:{email}      — the pending code, SET with the code TTL
//	{prefix}attempts:{email}  — the failed-attempt counter
//	{prefix}ratelimit:{email} — the request-cooldown marker
//
// Redis-native expiry makes lazy purging implicit, and INCR / SET NX give
// the per-key atomicity the engine's concurrency model requires without any
// external locking.
type RedisCodes struct {
	redis  redis.UniversalClient
	prefix string
	window time.Duration
}

// NewRedisCodes creates a RedisCodes with the given key prefix and
// request-cooldown window.
func NewRedisCodes(client redis.UniversalClient, prefix string, window time.Duration) *RedisCodes {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisCodes{
		redis:  client,
		prefix: prefix,
		window: window,
	}
}

func (s *RedisCodes) codeKey(email string) string {
	return s.prefix + "code:" + email
}

func (s *RedisCodes) attemptsKey(email string) string {
	return s.prefix + "attempts:" + email
}

func (s *RedisCodes) rateLimitKey(email string) string {
	return s.prefix + "ratelimit:" + email
}

// Save stores the code with ttl and clears the attempt counter in one
// transaction, so no concurrent reader can observe the new code with the
// old counter.
func (s *RedisCodes) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.codeKey(email), code, ttl)
		pipe.Del(ctx, s.attemptsKey(email))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	return nil
}

// Get returns the pending code, or "" once it has expired or was never set.
func (s *RedisCodes) Get(ctx context.Context, email string) (string, error) {
	code, err := s.redis.Get(ctx, s.codeKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	return code, nil
}

// Delete removes the code and its attempt counter together. Deleting keys
// that are already gone is not an error.
func (s *RedisCodes) Delete(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.codeKey(email), s.attemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	return nil
}

// IncrementAttempts atomically increments the counter and returns the new
// count. The counter's TTL is pinned to the code key's remaining TTL so it
// cannot outlive the code; with no code present it falls back to
// attemptsFallbackTTL instead of persisting forever.
func (s *RedisCodes) IncrementAttempts(ctx context.Context, email string) (int, error) {
	count, err := s.redis.Incr(ctx, s.attemptsKey(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}

	codeTTL, err := s.redis.TTL(ctx, s.codeKey(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	if codeTTL <= 0 {
		codeTTL = attemptsFallbackTTL
	}
	if err := s.redis.Expire(ctx, s.attemptsKey(email), codeTTL).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}

	return int(count), nil
}

// Attempts returns the current counter, zero when none is recorded.
func (s *RedisCodes) Attempts(ctx context.Context, email string) (int, error) {
	count, err := s.redis.Get(ctx, s.attemptsKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// CheckRateLimit arms the cooldown marker with SET NX, which is the atomic
// check-and-set the fixed-window limiter needs: exactly one of any set of
// concurrent callers wins the window.
func (s *RedisCodes) CheckRateLimit(ctx context.Context, email string) (bool, error) {
	ok, err := s.redis.SetNX(ctx, s.rateLimitKey(email), "1", s.window).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", wordgate.ErrStorageUnavailable, err)
	}
	return ok, nil
}

var _ wordgate.CodeStore = (*RedisCodes)(nil)
