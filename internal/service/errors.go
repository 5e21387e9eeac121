package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the visitor has no usable bearer token
	ErrUnauthorized = errors.New("sign in required")
	// ErrSuperseded means a newer run of the same action replaced this one
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrMailDisabled means no SMTP server is configured
	ErrMailDisabled = errors.New("email reports are not configured")
)

// ValidationError is bad user input, detected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
