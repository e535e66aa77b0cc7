package review

import "errors"

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrNotFound         = errors.New("review not found")
	// ErrUnauthorized also covers deleting somebody else's review.
	ErrUnauthorized = errors.New("unauthorized")
)
