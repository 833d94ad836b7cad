package task

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures and drives retry policy:
// input and auth errors are fatal, model errors are retried per chunk,
// api errors are retried with backoff and leave the transcript intact.
type ErrorKind string

const (
	ErrorInput ErrorKind = "input"
	ErrorModel ErrorKind = "model"
	ErrorAuth  ErrorKind = "auth"
	ErrorAPI   ErrorKind = "api"
)

// Kind sentinels for errors.Is matching.
var (
	ErrInput = errors.New("input error")
	ErrModel = errors.New("model error")
	ErrAuth  = errors.New("auth error")
	ErrAPI   = errors.New("api error")
)

// Error is a stage-aware pipeline error carrying its kind for retry
// decisions and a human-readable cause for the task history view.
type Error struct {
	Kind    ErrorKind
	Stage   Stage
	Message string
	Err     error
}

// Error formats the failure for logs and the task record.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the kind sentinels so callers can classify wrapped
// failures without inspecting the struct.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInput:
		return e.Kind == ErrorInput
	case ErrModel:
		return e.Kind == ErrorModel
	case ErrAuth:
		return e.Kind == ErrorAuth
	case ErrAPI:
		return e.Kind == ErrorAPI
	}
	return false
}

// NewError builds a stage-aware error of the given kind.
func NewError(kind ErrorKind, stage Stage, message string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Err: err}
}

// KindOf returns the error kind of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
