package circuit

import (
	"errors"
	"fmt"
)

// Sentinel errors for circuit breaker operations.
var (
	// ErrCallNotPermitted is the sentinel all permission denials unwrap to.
	// Use errors.Is(err, ErrCallNotPermitted) to distinguish a denial from
	// a forwarded backend error.
	ErrCallNotPermitted = errors.New("circuit: call not permitted")

	// ErrInvalidConfiguration is returned by constructors for out-of-range
	// thresholds or non-positive capacities.
	ErrInvalidConfiguration = errors.New("circuit: invalid configuration")
)

// PermissionError reports a denied AcquirePermission call together with the
// breaker state that caused the denial. It unwraps to ErrCallNotPermitted.
type PermissionError struct {
	Name   string
	State  State
	Reason string
}

// Error returns the error message.
func (e *PermissionError) Error() string {
	return fmt.Sprintf("circuit: call not permitted by %q (%s): %s", e.Name, e.State, e.Reason)
}

// Unwrap returns ErrCallNotPermitted.
func (e *PermissionError) Unwrap() error {
	return ErrCallNotPermitted
}
