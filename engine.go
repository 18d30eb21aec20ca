package wordgate

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/wordgate/wordgate/internal/audit"
	"github.com/wordgate/wordgate/token"
	"github.com/wordgate/wordgate/wordlist"
)

// Engine is the verification-code lifecycle orchestrator. It composes the
// code store, identity store, generator, token issuer and delivery
// collaborator into the two user-facing operations, RequestCode and
// RedeemCode, plus VerifyToken for authenticated-request middleware.
//
// Engines are built once via [Builder.Build] and are immutable and safe for
// concurrent use afterwards. The engine holds no lock across store or
// delivery calls; per-identity linearizability is the code store's contract.
type Engine struct {
	config    Config
	codes     CodeStore
	users     UserStore
	deliver   Deliverer
	generator *wordlist.Generator
	issuer    *token.Issuer
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
}

// Close flushes and stops the audit dispatcher. The engine itself owns no
// other background resources: there are no sweep timers, expiry is lazy.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// VerifyToken checks a session token's signature and expiry and returns the
// email it is bound to. Verification is a pure function of the token and the
// signing key; no store is consulted.
func (e *Engine) VerifyToken(ctx context.Context, tokenString string) (string, error) {
	if e == nil || e.issuer == nil {
		return "", ErrEngineNotReady
	}

	start := time.Now()
	email, err := e.issuer.Verify(tokenString)
	e.metrics.Observe(MetricVerifyLatency, time.Since(start))

	if err != nil {
		mapped := ErrTokenInvalid
		if errors.Is(err, token.ErrExpired) {
			mapped = ErrTokenExpired
		}
		e.metricInc(MetricTokenVerifyFailure)
		e.emitAudit(ctx, auditEventTokenVerify, "", false, mapped, nil)
		return "", mapped
	}

	e.metricInc(MetricTokenVerifySuccess)
	return email, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}
