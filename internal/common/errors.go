// Package common defines shared constants and sentinel errors used across
// gophident layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("username or email already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Authorization errors. ErrorUnauthorized covers every credentials failure:
	// bad or expired token, unknown subject, unknown user or wrong password.
	ErrorUnauthorized          = errors.New("could not validate credentials")
	ErrorInactive              = errors.New("inactive user")
	ErrorInsufficientPrivilege = errors.New("the user doesn't have enough privileges")

	// Token errors (invalid, malformed or forged token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
