package resource

import "errors"

var (
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthorized covers both anonymous callers and callers who do not
	// own the resource.
	ErrUnauthorized = errors.New("unauthorized")
)
