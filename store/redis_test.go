package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wordgate/wordgate"
)

func newTestRedisCodes(t *testing.T, window time.Duration) (*RedisCodes, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCodes(client, "", window), mr
}

func TestRedisCodesSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisCodes(t, time.Minute)

	code, err := s.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if code != "" {
		t.Fatalf("Get before Save = %q, want empty", code)
	}

	if err := s.Save(ctx, "a@x.com", "river stone", 10*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	code, err = s.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if code != "river stone" {
		t.Fatalf("Get = %q, want %q", code, "river stone")
	}

	if err := s.Delete(ctx, "a@x.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	code, err = s.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if code != "" {
		t.Fatalf("Get after Delete = %q, want empty", code)
	}

	if err := s.Delete(ctx, "a@x.com"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestRedisCodesExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisCodes(t, time.Minute)

	if err := s.Save(ctx, "a@x.com", "river stone", 10*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mr.FastForward(10*time.Minute + time.Second)

	code, err := s.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if code != "" {
		t.Fatalf("Get after expiry = %q, want empty", code)
	}
}

func TestRedisCodesSaveResetsAttempts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisCodes(t, time.Minute)

	if err := s.Save(ctx, "a@x.com", "old code", 10*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.IncrementAttempts(ctx, "a@x.com"); err != nil {
		t.Fatalf("IncrementAttempts: %v", err)
	}
	if _, err := s.IncrementAttempts(ctx, "a@x.com"); err != nil {
		t.Fatalf("IncrementAttempts: %v", err)
	}

	if err := s.Save(ctx, "a@x.com", "new code", 10*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	n, err := s.Attempts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if n != 0 {
		t.Fatalf("Attempts after re-save = %d, want 0", n)
	}
}

func TestRedisCodesAttemptCounterExpiresWithCode(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisCodes(t, time.Minute)

	if err := s.Save(ctx, "a@x.com", "river stone", 10*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	n, err := s.IncrementAttempts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("IncrementAttempts: %v", err)
	}
	if n != 1 {
		t.Fatalf("IncrementAttempts = %d, want 1", n)
	}

	// The counter's TTL is pinned to the code's, so both vanish together.
	mr.FastForward(10*time.Minute + time.Second)

	n, err = s.Attempts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if n != 0 {
		t.Fatalf("Attempts after expiry = %d, want 0", n)
	}
}

func TestRedisCodesOrphanAttemptCounterExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisCodes(t, time.Minute)

	// Probing an identity that was never issued a code must not leave a
	// permanent counter behind.
	if _, err := s.IncrementAttempts(ctx, "a@x.com"); err != nil {
		t.Fatalf("IncrementAttempts: %v", err)
	}

	if ttl := mr.TTL(DefaultKeyPrefix + "attempts:a@x.com"); ttl <= 0 {
		t.Fatalf("orphan attempts key TTL = %v, want bounded", ttl)
	}

	mr.FastForward(attemptsFallbackTTL + time.Second)

	n, err := s.Attempts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if n != 0 {
		t.Fatalf("Attempts after fallback TTL = %d, want 0", n)
	}
}

func TestRedisCodesConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisCodes(t, time.Minute)

	if err := s.Save(ctx, "a@x.com", "river stone", 10*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementAttempts(ctx, "a@x.com"); err != nil {
				t.Errorf("IncrementAttempts: %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := s.Attempts(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if n != workers {
		t.Fatalf("Attempts = %d after %d concurrent increments, lost updates", n, workers)
	}
}

func TestRedisCodesConcurrentRateLimitSingleWinner(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisCodes(t, time.Minute)

	const workers = 32
	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CheckRateLimit(ctx, "a@x.com")
			if err != nil {
				t.Errorf("CheckRateLimit: %v", err)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 1 {
		t.Fatalf("%d of %d concurrent callers won the window, want exactly 1", got, workers)
	}
}

func TestRedisCodesRateLimitWindow(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisCodes(t, time.Minute)

	ok, err := s.CheckRateLimit(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("CheckRateLimit: %v", err)
	}
	if !ok {
		t.Fatal("first call denied")
	}

	ok, err = s.CheckRateLimit(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("CheckRateLimit: %v", err)
	}
	if ok {
		t.Fatal("second call inside the window allowed")
	}

	mr.FastForward(time.Minute + time.Second)

	ok, err = s.CheckRateLimit(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("CheckRateLimit: %v", err)
	}
	if !ok {
		t.Fatal("call after the window elapsed denied")
	}
}

func TestRedisCodesKeyPrefix(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisCodes(client, "custom:", time.Minute)
	if err := s.Save(ctx, "a@x.com", "river stone", 10*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !mr.Exists("custom:code:a@x.com") {
		t.Fatal("code key not stored under the custom prefix")
	}
}

func TestRedisCodesStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisCodes(t, time.Minute)
	mr.Close()

	if err := s.Save(ctx, "a@x.com", "river stone", 10*time.Minute); !errors.Is(err, wordgate.ErrStorageUnavailable) {
		t.Fatalf("Save err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := s.Get(ctx, "a@x.com"); !errors.Is(err, wordgate.ErrStorageUnavailable) {
		t.Fatalf("Get err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := s.CheckRateLimit(ctx, "a@x.com"); !errors.Is(err, wordgate.ErrStorageUnavailable) {
		t.Fatalf("CheckRateLimit err = %v, want ErrStorageUnavailable", err)
	}
}
