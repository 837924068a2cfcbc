package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrInvalidRole             = errors.New("invalid role")
	ErrUserExists              = errors.New("user with this email already exists")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrAccessTokenRequired     = errors.New("access token is required")
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrHashing                 = errors.New("password hashing failed")
	ErrCorruptRecord           = errors.New("corrupt user record")
	ErrTooManyAttempts         = errors.New("too many failed login attempts")
	ErrRateLimited             = errors.New("too many requests")
	ErrNotImplemented          = errors.New("not implemented")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field violation found in a request.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CorruptRecordError is returned by store adapters when a persisted record
// cannot be converted into a valid User.
type CorruptRecordError struct {
	ID     string
	Field  string
	Value  string
	Reason string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt user record %q: field %s=%q: %s", e.ID, e.Field, e.Value, e.Reason)
}

func (e *CorruptRecordError) Is(target error) bool { return target == ErrCorruptRecord }
