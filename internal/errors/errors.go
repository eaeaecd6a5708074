package errors

import (
	"errors"
)

var (
	// ErrInvalidCredentials covers both "no such user" and "wrong
	// password" so a caller cannot tell which one occurred.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrTooManyLoginAttempts = errors.New("too many failed login attempts")
	ErrEmailAlreadyInUse    = errors.New("email already in use")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyVerified      = errors.New("email is already verified")
	ErrInvalidToken         = errors.New("invalid token")
	ErrExpiredToken         = errors.New("expired token")
	ErrRateLimited          = errors.New("too many requests")
)

// ValidationError reports malformed or missing request input. The
// message is safe to return to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}
