package router

import "errors"

// Router errors.
var (
	// ErrNoMatch indicates no route matches the fragment.
	ErrNoMatch = errors.New("router: no route matches")

	// ErrUnknownHandler indicates a route names a handler that is not registered.
	ErrUnknownHandler = errors.New("router: unknown handler")

	// ErrInvalidPattern indicates a route pattern could not be compiled.
	ErrInvalidPattern = errors.New("router: invalid pattern")
)
