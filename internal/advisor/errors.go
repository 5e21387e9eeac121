package advisor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed advisory call
type ErrorKind string

const (
	KindMissingConfiguration ErrorKind = "missing-configuration"
	KindNetwork              ErrorKind = "network"
	KindUpstream             ErrorKind = "upstream"
)

// Error is returned by every Advisor that fails
type Error struct {
	Kind    ErrorKind
	Op      Op
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("advisor %s: %s error: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an advisor error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Notice is the user-facing hint for a failed advisory call
func Notice(err error) string {
	var ae *Error
	if !errors.As(err, &ae) {
		return "AI analysis is unavailable right now."
	}
	switch ae.Kind {
	case KindMissingConfiguration:
		return "AI analysis is not configured. Set an AI provider key to enable it."
	case KindNetwork:
		return "AI service could not be reached. Your results are shown without analysis."
	}
	return "AI service is temporarily unavailable."
}
