package wordgate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RequestCode generates a verification code for email, stores it with the
// configured TTL and hands it to the delivery collaborator. wordCount
// overrides the configured word count when non-zero.
//
// The returned duration is the code's TTL, for display to the user.
//
// A second request inside the cooldown window fails with [ErrRateLimited].
// Saving a new code atomically replaces any prior one and resets the attempt
// counter. When delivery fails the saved code is deliberately left in place:
// the mail may still have gone out, and the user can retry redemption or
// request again once the window permits.
func (e *Engine) RequestCode(ctx context.Context, email string, wordCount int) (time.Duration, error) {
	if e == nil || e.codes == nil || e.deliver == nil {
		return 0, ErrEngineNotReady
	}

	email = strings.TrimSpace(email)

	allowed, err := e.codes.CheckRateLimit(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventCodeRequest, email, false, err, nil)
		return 0, err
	}
	if !allowed {
		e.metricInc(MetricCodeRequestRateLimited)
		e.emitAudit(ctx, auditEventCodeRequest, email, false, ErrRateLimited, nil)
		e.emitRateLimit(ctx, "code_request", email)
		return 0, ErrRateLimited
	}

	words := wordCount
	if words == 0 {
		words = e.config.Code.WordCount
	}

	code, err := e.generator.Generate(words, e.config.Code.Separator)
	if err != nil {
		e.emitAudit(ctx, auditEventCodeRequest, email, false, err, nil)
		return 0, err
	}

	ttl := e.config.Code.TTL
	if err := e.codes.Save(ctx, email, code, ttl); err != nil {
		e.emitAudit(ctx, auditEventCodeRequest, email, false, err, nil)
		return 0, err
	}

	if err := e.deliver.Deliver(ctx, email, code, ttl); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventCodeRequest, email, false, wrapped, func() map[string]string {
			return map[string]string{
				"stage": "delivery",
			}
		})
		return 0, wrapped
	}

	e.metricInc(MetricCodeRequested)
	e.emitAudit(ctx, auditEventCodeRequest, email, true, nil, nil)
	return ttl, nil
}
