package errors

import (
	"fmt"
)

// Configuration errors shared by the config layer and provider constructors
var (
	ErrMissingAPIKey    = New("API key is required")
	ErrInvalidConfig    = New("invalid configuration")
	ErrUnknownProvider  = New("unknown provider")
	ErrUnsupportedInput = New("unsupported input")
)

// Error is a message with an optional cause
type Error struct {
	message string
	cause   error
}

// New creates a new error
func New(message string) *Error {
	return &Error{message: message}
}

// Newf creates a new formatted error
func Newf(format string, args ...interface{}) *Error {
	return &Error{message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: message,
		cause:   err,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors carrying the same message, so sentinels survive wrapping
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.message == t.message
}

// MissingKey reports a credential that a provider variant needs
func MissingKey(envName string) error {
	return Wrapf(ErrMissingAPIKey, "%s is not set", envName)
}

// UnknownProvider reports a provider selector outside the supported set
func UnknownProvider(capability, value string) error {
	return Wrapf(ErrUnknownProvider, "%s provider %q", capability, value)
}

// InvalidField returns an error for invalid field values
func InvalidField(field string, reason string) error {
	return Wrapf(ErrInvalidConfig, "%s is invalid: %s", field, reason)
}
