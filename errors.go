package wordgate

import "errors"

// Every failure the engine reports is one of the sentinel errors below, so
// callers can branch with errors.Is and map kinds to transport responses.
// All kinds are recoverable by the caller except ErrStorageUnavailable,
// which is a hard dependency failure. Messages never include backend
// details; causes are attached by wrapping where they occur.
var (
	// ErrRateLimited is returned by RequestCode while the per-identity
	// cooldown window is still open.
	ErrRateLimited = errors.New("code request rate limited")
	// ErrMalformedCode is returned by RedeemCode when the submitted code is
	// not well-formed against the wordlist. Malformed submissions count
	// toward the attempt ceiling.
	ErrMalformedCode = errors.New("malformed verification code")
	// ErrCodeNotFound is returned by RedeemCode when no code is pending for
	// the identity, either because none was issued or because it expired.
	ErrCodeNotFound = errors.New("verification code expired or not found")
	// ErrAttemptsExceeded is returned by RedeemCode once the attempt ceiling
	// is reached; the pending code is deleted in the same operation.
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
	// ErrInvalidCode is returned by RedeemCode when the submitted code does
	// not match the stored one.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrUnknownUser is returned by RedeemCode when the identity does not
	// exist and auto-provisioning was not requested. The code is already
	// consumed at that point.
	ErrUnknownUser = errors.New("unknown user")
	// ErrTokenExpired is returned by VerifyToken when the session token's
	// expiry has passed.
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenInvalid is returned by VerifyToken for any signature or
	// structural failure.
	ErrTokenInvalid = errors.New("session token invalid")
	// ErrStorageUnavailable wraps backend connectivity failures from the
	// code and identity stores. The engine never retries; retry policy
	// belongs to the transport layer.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDeliveryFailed wraps failures from the delivery collaborator. The
	// saved code is left in place (see package docs).
	ErrDeliveryFailed = errors.New("code delivery failed")
	// ErrEngineNotReady is returned when an Engine is used before Build
	// wired its collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
)
