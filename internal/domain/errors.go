package domain

import "errors"

var (
	// ErrNotFound: a room, rule or override the caller named does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRule: a malformed rule rejected at creation/update time.
	// Already-stored malformed rules never reach this path; the engine
	// skips them during composition and logs a data-integrity warning.
	ErrInvalidRule = errors.New("invalid pricing rule")
)
