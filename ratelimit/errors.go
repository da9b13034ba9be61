package ratelimit

import "errors"

// Sentinel errors for rate limiter operations.
var (
	// ErrPermissionDenied is returned by Execute-style callers when the
	// computed wait for a permit exceeds the configured timeout.
	ErrPermissionDenied = errors.New("ratelimit: permission denied")

	// ErrInvalidConfiguration is returned by constructors and live
	// reconfiguration for non-positive limits or periods.
	ErrInvalidConfiguration = errors.New("ratelimit: invalid configuration")
)
