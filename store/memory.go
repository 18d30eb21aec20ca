package store

import (
	"context"
	"sync"
	"time"

	"github.com/wordgate/wordgate"
)

type pendingCode struct {
	code      string
	expiresAt time.Time
}

// MemoryCodes is the in-process CodeStore for tests, development and
// single-node deployments. A single coarse mutex guards all tables; every
// operation is O(1) and never blocks on I/O, so the coarse scope costs
// nothing. Expired codes are purged lazily on Get, matching the Redis
// backend's native-expiry behavior.
type MemoryCodes struct {
	mu       sync.Mutex
	codes    map[string]pendingCode
	attempts map[string]int
	cooldown map[string]time.Time
	window   time.Duration

	now func() time.Time
}

// NewMemoryCodes creates a MemoryCodes with the given request-cooldown
// window.
func NewMemoryCodes(window time.Duration) *MemoryCodes {
	return &MemoryCodes{
		codes:    make(map[string]pendingCode),
		attempts: make(map[string]int),
		cooldown: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// Save stores the code and resets the attempt counter under one lock hold.
func (s *MemoryCodes) Save(_ context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[email] = pendingCode{
		code:      code,
		expiresAt: s.now().Add(ttl),
	}
	delete(s.attempts, email)
	return nil
}

// Get returns the pending code, or "" when absent or expired. Detecting
// expiry purges the stale code and its counter so later attempt and
// rate-limit reads see clean state.
func (s *MemoryCodes) Get(_ context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.codes[email]
	if !ok {
		return "", nil
	}
	if s.now().After(pending.expiresAt) {
		delete(s.codes, email)
		delete(s.attempts, email)
		return "", nil
	}
	return pending.code, nil
}

// Delete removes the code and its attempt counter together, idempotently.
func (s *MemoryCodes) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.codes, email)
	delete(s.attempts, email)
	return nil
}

// IncrementAttempts adds one failed attempt and returns the new count.
func (s *MemoryCodes) IncrementAttempts(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[email]++
	return s.attempts[email], nil
}

// Attempts returns the current counter, zero when none is recorded.
func (s *MemoryCodes) Attempts(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts[email], nil
}

// CheckRateLimit implements the fixed-window cooldown: the first call (or
// the first after the window elapsed) arms the window and allows; calls
// inside an armed window are denied.
func (s *MemoryCodes) CheckRateLimit(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, ok := s.cooldown[email]; ok && now.Before(until) {
		return false, nil
	}
	s.cooldown[email] = now.Add(s.window)
	return true, nil
}

var _ wordgate.CodeStore = (*MemoryCodes)(nil)

// MemoryUsers is the in-process UserStore.
type MemoryUsers struct {
	mu    sync.Mutex
	users map[string]*wordgate.UserRecord

	now func() time.Time
}

// NewMemoryUsers creates an empty MemoryUsers.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		users: make(map[string]*wordgate.UserRecord),
		now:   time.Now,
	}
}

// Get returns a copy of the record, or nil when absent.
func (s *MemoryUsers) Get(_ context.Context, email string) (*wordgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyRecord(s.users[email]), nil
}

// GetOrCreate returns the existing record or creates one with CreatedAt=now.
func (s *MemoryUsers) GetOrCreate(_ context.Context, email string) (*wordgate.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[email]; ok {
		return copyRecord(existing), nil
	}

	record := &wordgate.UserRecord{
		Email:     email,
		CreatedAt: s.now(),
	}
	s.users[email] = record
	return copyRecord(record), nil
}

// UpdateLastLogin sets LastLogin=now; a missing record is a no-op.
func (s *MemoryUsers) UpdateLastLogin(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.users[email]; ok {
		now := s.now()
		record.LastLogin = &now
	}
	return nil
}

func copyRecord(r *wordgate.UserRecord) *wordgate.UserRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.LastLogin != nil {
		t := *r.LastLogin
		out.LastLogin = &t
	}
	return &out
}

var _ wordgate.UserStore = (*MemoryUsers)(nil)
