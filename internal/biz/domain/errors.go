package domain

import "errors"

// Platform and validation errors classified by the engine.
var (
	// ErrTooOld is returned when a bulk delete hits the platform's
	// 14-day age ceiling (API error code 50034).
	ErrTooOld = errors.New("messages older than 14 days cannot be bulk deleted")

	// ErrMissingAccess covers permission failures on platform calls
	// (API error codes 50001/50013).
	ErrMissingAccess = errors.New("missing access or permissions")

	// ErrUnknownRank is returned when a rank label has no configured
	// role mapping.
	ErrUnknownRank = errors.New("rank not configured")

	// ErrRelayUnavailable is returned when the webhook relay cannot be
	// reached; callers fall back to the direct path.
	ErrRelayUnavailable = errors.New("webhook relay unavailable")
)
