package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeStructural    ErrorType = "structural"
	ErrorTypeTransient     ErrorType = "transient"
	ErrorTypeDownload      ErrorType = "download"
	ErrorTypeData          ErrorType = "data"
	ErrorTypeCancelled     ErrorType = "cancelled"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error is a typed error carrying the operation that produced it
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s error in %s: %s", e.Type, e.Op, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on type when the target is a bare *Error sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Type == e.Type
}

// Sentinels for the conditions callers branch on
var (
	ErrCancelled         = &Error{Type: ErrorTypeCancelled, Message: "cancelled"}
	ErrUIElementNotFound = &Error{Type: ErrorTypeStructural, Message: "ui element not found"}
)

// New creates a typed error
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap attaches a type and operation to an underlying error
func Wrap(t ErrorType, op string, err error) *Error {
	return &Error{Type: t, Op: op, Err: err}
}

// TypeOf returns the type of the first *Error in the chain
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type anywhere in its chain
func Is(err error, t ErrorType) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransient:
		return true
	case ErrorTypeConfiguration, ErrorTypeStructural, ErrorTypeDownload, ErrorTypeData, ErrorTypeCancelled:
		return false
	default:
		return false
	}
}
