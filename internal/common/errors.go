// Package common defines sentinel errors and shared constants used by every
// layer of the service. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Session errors.
	ErrMissingCredentials  = errors.New("email and password are required")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDisabled     = errors.New("account is deactivated")
	ErrMissingToken        = errors.New("token is required")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTokenRevoked        = errors.New("refresh token has been revoked")
	ErrUserNotFound        = errors.New("user not found")

	// Token verification and authorization errors.
	ErrTokenExpired          = errors.New("token expired")
	ErrInvalidToken          = errors.New("invalid token")
	ErrInsufficientPrivilege = errors.New("requires admin privileges")
)

// ValidationError reports a rejected request or record field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is(err, ErrorValidation) match.
func (e *ValidationError) Unwrap() error { return ErrorValidation }

// NewValidationError is a shorthand for &ValidationError{...}.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
