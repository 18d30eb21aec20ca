package wordgate

import (
	"context"
	"time"

	internalaudit "github.com/wordgate/wordgate/internal/audit"
)

const (
	auditEventCodeRequest = "code_request"
	auditEventCodeRedeem  = "code_redeem"
	auditEventTokenVerify = "token_verify"
	auditEventRateLimit   = "rate_limit_triggered"
)

// emitAudit queues an observability event. metaFn is only invoked when a
// dispatcher is attached, so emit sites pay nothing when auditing is off.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType, email string,
	success bool,
	opErr error,
	metaFn func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := internalaudit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		Email:     email,
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if metaFn != nil {
		event.Metadata = metaFn()
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, operation, email string) {
	e.emitAudit(ctx, auditEventRateLimit, email, false, ErrRateLimited, func() map[string]string {
		return map[string]string{
			"operation": operation,
		}
	})
}
