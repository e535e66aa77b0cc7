package notification

import "errors"

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotConfigured = errors.New("mail delivery is not configured")
)
