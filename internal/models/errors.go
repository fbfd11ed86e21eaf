package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide between aborting the
// run and recording a per-image failure.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindEmptyInput      ErrorKind = "empty_input"
	KindBackendInit     ErrorKind = "backend_init"
	KindConfig          ErrorKind = "config"
	KindPreprocess      ErrorKind = "preprocess"
	KindRecognition     ErrorKind = "recognition"
	KindRemoteService   ErrorKind = "remote_service"
	KindSchemaViolation ErrorKind = "schema_violation"
	KindWrite           ErrorKind = "write"
)

// Fatal reports whether an error of this kind must stop the run before any
// image is processed.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindNotFound, KindEmptyInput, KindBackendInit, KindConfig:
		return true
	default:
		return false
	}
}

// Error is the error type returned by every stage of the pipeline.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
	// Hint is a remediation line printed under fatal errors.
	Hint string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithHint attaches a remediation hint and returns the same error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// NewError creates a new pipeline error
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFoundError(message string, err error) *Error {
	return NewError(KindNotFound, message, err)
}

func EmptyInputError(message string) *Error {
	return NewError(KindEmptyInput, message, nil)
}

func BackendInitError(message string, err error) *Error {
	return NewError(KindBackendInit, message, err)
}

func ConfigError(message string, err error) *Error {
	return NewError(KindConfig, message, err)
}

func PreprocessError(message string, err error) *Error {
	return NewError(KindPreprocess, message, err)
}

func RecognitionError(message string, err error) *Error {
	return NewError(KindRecognition, message, err)
}

func RemoteServiceError(message string, err error) *Error {
	return NewError(KindRemoteService, message, err)
}

func SchemaViolationError(message string, err error) *Error {
	return NewError(KindSchemaViolation, message, err)
}

func WriteError(message string, err error) *Error {
	return NewError(KindWrite, message, err)
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if
// there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries a pipeline error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsFatal reports whether err should abort the run.
func IsFatal(err error) bool {
	return KindOf(err).Fatal()
}

// HintOf returns the first remediation hint found in err's chain.
func HintOf(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Hint != "" {
			return e.Hint
		}
		err = e.Err
	}
	return ""
}
