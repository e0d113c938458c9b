package optimization

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies an optimization error so callers can tell a bad
// configuration from a failing strategy or an aborted run.
type ErrorKind int

const (
	// KindUnknown is the zero value for errors created without a kind.
	KindUnknown ErrorKind = iota
	// KindConfig marks invalid configuration, reported when the value is set.
	KindConfig
	// KindStrategy marks a failure raised by a caller-supplied strategy.
	KindStrategy
	// KindInvariant marks an internal logic violation. It is never expected
	// in a correct run.
	KindInvariant
	// KindCancelled marks a run aborted through its context.
	KindCancelled
)

// String returns the lower-case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindStrategy:
		return "strategy"
	case KindInvariant:
		return "invariant"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidConfig is the sentinel wrapped by configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSelectionExhausted is returned when the roulette wheel scans the
	// whole population without landing on a candidate.
	ErrSelectionExhausted = errors.New("selection exhausted population without choosing a candidate")
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithKind sets the error kind.
func (e *Error) WithKind(kind ErrorKind) *Error {
	e.Kind = kind
	return e
}

// NewError creates a new optimization error with the given message.
func NewError(message string) *Error {
	return &Error{
		Message: message,
	}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// ConfigErrorf builds a KindConfig error wrapping ErrInvalidConfig.
func ConfigErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindConfig,
		Message: fmt.Sprintf(format, args...),
		Err:     ErrInvalidConfig,
	}
}

// Cancelled wraps a context error as a KindCancelled error. The context
// error stays reachable through errors.Is.
func Cancelled(err error) *Error {
	if err == nil {
		err = context.Canceled
	}
	return &Error{
		Kind:    KindCancelled,
		Message: "run cancelled",
		Err:     err,
	}
}

// IsOptimizationError checks if an error is of type Error.
// If the error is an optimization error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the outermost optimization error in err's
// chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	if e, ok := IsOptimizationError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// IsCancelled reports whether err represents a cancelled run.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
