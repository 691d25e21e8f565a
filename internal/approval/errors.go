package approval

import "errors"

// Error classes raised by the engine. Callers match with errors.Is; the HTTP
// layer maps them onto status codes.
var (
	// ErrConfiguration: the rule is missing, malformed, or names a strategy
	// this build does not support. Not retryable.
	ErrConfiguration = errors.New("approval: invalid configuration")

	// ErrForbidden: the acting identity is not entitled, is out of turn, or
	// has already voted on this request.
	ErrForbidden = errors.New("approval: forbidden")

	// ErrAlreadyTreated: the request reached a terminal state before this
	// decision was admitted.
	ErrAlreadyTreated = errors.New("approval: request already treated")

	// ErrLockTimeout: the per-request guard could not be acquired within the
	// wait bound. Safe to retry with backoff.
	ErrLockTimeout = errors.New("approval: could not acquire request lock")

	// ErrValidation: malformed decision or rule payload.
	ErrValidation = errors.New("approval: invalid payload")

	// ErrNotFound: no such request.
	ErrNotFound = errors.New("approval: not found")
)
