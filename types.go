package wordgate

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/wordgate/wordgate/internal/audit"
)

// UserRecord is the identity record kept by a UserStore. Records are created
// on first successful redemption when auto-provisioning is allowed, or by an
// external registration flow; the engine only ever mutates LastLogin.
type UserRecord struct {
	Email     string
	CreatedAt time.Time
	LastLogin *time.Time
}

// CodeStore holds the per-identity verification-code state: at most one
// pending code, its attempt counter, and the request-rate cooldown marker.
// It is pure data plane; all policy lives in the Engine.
//
// Implementations must make Save, IncrementAttempts and Delete linearizable
// per email (atomic counter increments, no window where an old attempt
// counter survives a new code). Operations on different emails must not
// contend. Backend connectivity failures are reported wrapped in
// [ErrStorageUnavailable].
type CodeStore interface {
	// Save stores code for email with the given TTL and resets the attempt
	// counter to zero as part of the same operation.
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Get returns the active code, or "" when none is pending. An expired
	// code behaves as absent; backends without native expiry must purge the
	// stale record as a side effect.
	Get(ctx context.Context, email string) (string, error)
	// Delete removes the code and its attempt counter together, idempotently.
	Delete(ctx context.Context, email string) error
	// IncrementAttempts adds one failed attempt and returns the new count.
	IncrementAttempts(ctx context.Context, email string) (int, error)
	// Attempts returns the current attempt count, zero when none recorded.
	Attempts(ctx context.Context, email string) (int, error)
	// CheckRateLimit reports whether a code request is allowed right now.
	// The first allowed call arms a fixed cooldown window; further calls are
	// denied until it elapses, after which the next call re-arms it. This is
	// an intentional simplification, not a precision rate limiter.
	CheckRateLimit(ctx context.Context, email string) (bool, error)
}

// UserStore is the identity data plane: existence checks, get-or-create,
// and last-login bookkeeping. Nothing here is ever deleted by the engine.
type UserStore interface {
	// Get returns the record for email, or nil when absent. No side effects.
	Get(ctx context.Context, email string) (*UserRecord, error)
	// GetOrCreate returns the existing record or atomically creates one with
	// CreatedAt=now and no LastLogin.
	GetOrCreate(ctx context.Context, email string) (*UserRecord, error)
	// UpdateLastLogin sets LastLogin=now. A missing record is a no-op, not
	// an error.
	UpdateLastLogin(ctx context.Context, email string) error
}

// Deliverer hands a freshly issued code to the user, typically by email.
// The engine treats delivery as an injected collaborator and never touches
// the transport itself.
type Deliverer interface {
	Deliver(ctx context.Context, email, code string, ttl time.Duration) error
}

// DelivererFunc adapts a plain function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, email, code string, ttl time.Duration) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, email, code string, ttl time.Duration) error {
	return f(ctx, email, code, ttl)
}

// AuditEvent is a structured observability event emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
