package wordgate

import (
	"context"
	"strconv"
	"strings"
)

// RedeemCode checks a submitted code against the pending one for email and,
// on match, consumes it and returns a signed session token.
//
// Failure order: a format-invalid submission counts as a failed attempt even
// though nothing was compared (malformed input is treated as an adversarial
// probe); a missing or expired code is terminal with no attempt penalty; a
// counter already at the ceiling deletes the pending code in the same
// operation that detects it. The ceiling check uses >= so the Nth failure is
// still reported as [ErrInvalidCode] and only the attempt after it sees
// [ErrAttemptsExceeded].
//
// Identity resolution happens after the code is consumed: with
// autoCreateUser the record is created as needed and its last login updated;
// otherwise a missing identity yields [ErrUnknownUser] and the code is gone
// regardless — codes are single-use.
func (e *Engine) RedeemCode(ctx context.Context, email, submittedCode string, autoCreateUser bool) (string, error) {
	if e == nil || e.codes == nil || e.users == nil || e.issuer == nil {
		return "", ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	submittedCode = strings.TrimSpace(submittedCode)

	if !e.generator.Validate(submittedCode, e.config.Code.Separator) {
		if _, err := e.codes.IncrementAttempts(ctx, email); err != nil {
			e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
			return "", err
		}
		e.metricInc(MetricRedeemMalformed)
		e.metricInc(MetricRedeemFailure)
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, ErrMalformedCode, nil)
		return "", ErrMalformedCode
	}

	stored, err := e.codes.Get(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
		return "", err
	}
	if stored == "" {
		e.metricInc(MetricRedeemFailure)
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, ErrCodeNotFound, nil)
		return "", ErrCodeNotFound
	}

	attempts, err := e.codes.Attempts(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
		return "", err
	}
	if attempts >= e.config.Code.MaxAttempts {
		if err := e.codes.Delete(ctx, email); err != nil {
			e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
			return "", err
		}
		e.metricInc(MetricAttemptsExceeded)
		e.metricInc(MetricRedeemFailure)
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, ErrAttemptsExceeded, func() map[string]string {
			return map[string]string{
				"attempts": strconv.Itoa(attempts),
			}
		})
		return "", ErrAttemptsExceeded
	}

	if !strings.EqualFold(stored, submittedCode) {
		if _, err := e.codes.IncrementAttempts(ctx, email); err != nil {
			e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
			return "", err
		}
		e.metricInc(MetricRedeemFailure)
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, ErrInvalidCode, nil)
		return "", ErrInvalidCode
	}

	// Match. Consume the code before touching identity state: a failed
	// identity lookup must not leave a redeemable code behind.
	if err := e.codes.Delete(ctx, email); err != nil {
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
		return "", err
	}

	if autoCreateUser {
		existing, err := e.users.Get(ctx, email)
		if err != nil {
			e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
			return "", err
		}
		if _, err := e.users.GetOrCreate(ctx, email); err != nil {
			e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
			return "", err
		}
		if existing == nil {
			e.metricInc(MetricUserAutoCreated)
		}
	} else {
		existing, err := e.users.Get(ctx, email)
		if err != nil {
			e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
			return "", err
		}
		if existing == nil {
			e.metricInc(MetricUnknownUser)
			e.metricInc(MetricRedeemFailure)
			e.emitAudit(ctx, auditEventCodeRedeem, email, false, ErrUnknownUser, nil)
			return "", ErrUnknownUser
		}
	}

	if err := e.users.UpdateLastLogin(ctx, email); err != nil {
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
		return "", err
	}

	tok, err := e.issuer.Issue(email)
	if err != nil {
		e.emitAudit(ctx, auditEventCodeRedeem, email, false, err, nil)
		return "", err
	}

	e.metricInc(MetricRedeemSuccess)
	e.emitAudit(ctx, auditEventCodeRedeem, email, true, nil, nil)
	return tok, nil
}
