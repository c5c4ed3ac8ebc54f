// Package shared defines sentinel errors and small helpers used across
// server layers. Callers should use errors.Is to match these values.
package shared

import "errors"

var (

	// common errors
	ErrorNotFound = errors.New("not found")
	ErrorInternal = errors.New("internal error")

	// auth-specific errors
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorInvalidToken = errors.New("invalid token")
	ErrorTokenExpired = errors.New("token expired")

	// account-specific errors
	ErrorAlreadyExists      = errors.New("already exists")
	ErrorIncorrectPassword  = errors.New("incorrect password")
	ErrorBotCheckFailed     = errors.New("bot detection failed")
	ErrorEmailNotVerified   = errors.New("email not verified")
	ErrorVerificationFailed = errors.New("verification failed")

	// payload validation errors
	ErrorValidation = errors.New("validation error")
)
