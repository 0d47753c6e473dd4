// Package apperror defines the error taxonomy shared by the service and HTTP layers.
//
// Services return *AppError values that wrap one of the sentinel errors below.
// Handlers use errors.Is against the sentinels to pick an HTTP status, and
// AppError.Message as the client-facing text.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrUnavailable        = errors.New("unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOAuthExchange      = errors.New("oauth exchange failed")
	ErrNoPrimaryEmail     = errors.New("no primary email")
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports a bad request input. The empty-code check on
// /analyze uses it with field "code".
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation, e.g. Conflict("user", "email").
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// Unavailable reports a feature the server is not configured for.
// HTTP handlers map this to 503 Service Unavailable.
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InvalidCredentials carries the same message whether the account is
// missing, has no password, or the password is wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Incorrect email or password",
	}
}

// OAuthExchange is returned when the provider hands back no access token.
func OAuthExchange(detail string) *AppError {
	if detail == "" {
		detail = "Unknown error"
	}
	return &AppError{
		Err:     ErrOAuthExchange,
		Message: "Failed to get access token from GitHub: " + detail,
	}
}

func NoPrimaryEmail() *AppError {
	return &AppError{
		Err:     ErrNoPrimaryEmail,
		Message: "No primary email found in GitHub account",
	}
}
