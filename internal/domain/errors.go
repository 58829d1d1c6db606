package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrPaymentRequired = errors.New("payment required")
	ErrRateLimited     = errors.New("rate limited")
	// ErrUpstream marks a failed call to an external collaborator (storage, payment provider).
	ErrUpstream = errors.New("upstream failure")
	// ErrUnavailable marks an external call that timed out. Callers may retry.
	ErrUnavailable = errors.New("temporarily unavailable")
)

// Specific errors. Each wraps its category so errors.Is matches both.
var (
	ErrInvalidEmail        = fmt.Errorf("invalid email address: %w", ErrBadRequest)
	ErrFreeProviderBlocked = fmt.Errorf("free email providers not allowed: %w", ErrBadRequest)
	ErrDomainUnreachable   = fmt.Errorf("domain cannot receive email: %w", ErrBadRequest)

	ErrNoCodeFound  = fmt.Errorf("no verification code found: %w", ErrBadRequest)
	ErrCodeExpired  = fmt.Errorf("verification code expired: %w", ErrBadRequest)
	ErrCodeMismatch = fmt.Errorf("invalid verification code: %w", ErrBadRequest)

	ErrTokenMissing  = fmt.Errorf("no authorization token provided: %w", ErrUnauthorized)
	ErrTokenNotFound = fmt.Errorf("invalid or expired token: %w", ErrUnauthorized)
	ErrTokenExpired  = fmt.Errorf("token expired: %w", ErrUnauthorized)

	ErrEditWindowExpired   = fmt.Errorf("edit period has expired: %w", ErrForbidden)
	ErrNoValidUpdates      = fmt.Errorf("no valid updates provided: %w", ErrBadRequest)
	ErrPaymentProofMissing = fmt.Errorf("extension requires payment: %w", ErrPaymentRequired)
)
