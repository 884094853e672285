package memory

import "errors"

// Sentinel errors for memory store operations. These are part of the
// Store's public API; check with errors.Is().
var (
	// ErrUnknownProfile indicates the referenced profile does not exist in
	// the profile registry. Never retried, always surfaced.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrNoMemory indicates no memory record exists yet for the profile.
	// Returned by Read, which never auto-creates.
	ErrNoMemory = errors.New("no memory record")

	// ErrVersionConflict indicates the optimistic fencing check failed
	// repeatedly under concurrent mutation. Transient: callers may retry.
	ErrVersionConflict = errors.New("memory version conflict")

	// ErrInvalidPlanKind indicates a plan kind other than nutrition or routine.
	ErrInvalidPlanKind = errors.New("invalid plan kind")
)
