package filter

import (
	"errors"
	"fmt"
)

// Filter errors.
var (
	// ErrPanic indicates a hook or handler panicked.
	ErrPanic = errors.New("filter: panic")

	// ErrNilHandler indicates Intercept was called without a handler.
	ErrNilHandler = errors.New("filter: nil handler")
)

// DispatchError reports a hook or handler failure.
type DispatchError struct {
	Phase Phase
	Route string
	// Key is the registry key of the failing hook ("" for single hooks and handlers).
	Key string
	Err error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("filter: %s hook %q on route %q: %v", e.Phase, e.Key, e.Route, e.Err)
	}
	return fmt.Sprintf("filter: %s on route %q: %v", e.Phase, e.Route, e.Err)
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}
