package auth

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrNonInstitutionalEmail = errors.New("email is not an institutional address")
	ErrServiceUnavailable    = errors.New("auth service unavailable")
	ErrUserNotFound          = errors.New("user not found")
)
