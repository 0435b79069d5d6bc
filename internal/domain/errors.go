package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the chat pipeline.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation_error"
	KindSessionNotFound      ErrorKind = "session_not_found"
	KindRetrievalUnavailable ErrorKind = "retrieval_unavailable"
	KindGenerationFailure    ErrorKind = "generation_failure"
	KindPersistenceFailure   ErrorKind = "persistence_failure"
	KindInternal             ErrorKind = "internal_error"
)

// User-facing messages for errors whose details must not leak.
const (
	MsgServiceUnavailable = "I'm having trouble processing your request. Please try again."
	MsgStreamFailed       = "An error occurred during streaming. Please try again."
	MsgSessionNotFound    = "Session not found"
)

// Error is a classified pipeline error. Message is safe to show to callers
// only for validation and not-found kinds.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the same request.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindValidation, KindSessionNotFound:
		return false
	}
	return true
}

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = &Error{Kind: KindSessionNotFound, Message: MsgSessionNotFound}

// NewValidationError returns a validation error with a user-facing message.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewRetrievalError wraps a failure of the embedding provider or vector index.
func NewRetrievalError(err error) *Error {
	return &Error{Kind: KindRetrievalUnavailable, Message: "retrieval unavailable", Err: err}
}

// NewGenerationError wraps a failure of the generation provider.
func NewGenerationError(err error) *Error {
	return &Error{Kind: KindGenerationFailure, Message: "generation failed", Err: err}
}

// NewPersistenceError wraps a failure of the session store.
func NewPersistenceError(op string, err error) *Error {
	return &Error{Kind: KindPersistenceFailure, Message: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
