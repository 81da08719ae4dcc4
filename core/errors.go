package core

import (
	"strconv"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// IsNotFound reports whether the root cause of err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// BackendError is returned when the REST backend fails or answers with an error status.
type BackendError struct {
	StatusCode int // 0 when no response was received
	Message    string
}

func NewBackendError(status int, msg string) error {
	return &BackendError{StatusCode: status, Message: msg}
}

func (err BackendError) Error() string {
	if err.StatusCode == 0 {
		return "backend unavailable: " + err.Message
	}
	return "backend error (" + strconv.Itoa(err.StatusCode) + "): " + err.Message
}

// IsBackendError reports whether the root cause of err is a *BackendError.
func IsBackendError(err error) bool {
	_, ok := errors.Cause(err).(*BackendError)
	return ok
}
