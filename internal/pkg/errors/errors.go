package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated caller without access.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks a request that lost against the current resource state.
	ErrConflict = errors.New("conflict")
	// ErrMissingConfig marks a required setting that is absent at request time.
	ErrMissingConfig = errors.New("missing configuration")
)
