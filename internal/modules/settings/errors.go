package settings

import "errors"

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrEmailInUse      = errors.New("email already in use")
	ErrInvalidPassword = errors.New("current password is incorrect")
)
