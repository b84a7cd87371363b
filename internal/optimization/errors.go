package optimization

import (
	"errors"
	"fmt"
)

// Sentinel errors making up the optimizer error taxonomy. Callers test for
// them with errors.Is; the concrete error is usually an *Error carrying the
// operation and component that failed.
var (
	// ErrInvalidObservation reports an empty or invalid target set, a
	// parameter row outside the parameter space, or a shape mismatch.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrIncompatibleShape reports tables with differing row counts. It also
	// matches ErrInvalidObservation.
	ErrIncompatibleShape = fmt.Errorf("incompatible shape: %w", ErrInvalidObservation)

	// ErrContextRequired reports a missing context on a problem that has a
	// context space, or a query that needs one.
	ErrContextRequired = errors.New("context required")

	// ErrContextNotSupported reports context supplied where the problem or
	// the implementation cannot take it.
	ErrContextNotSupported = errors.New("context not supported")

	// ErrModelNotFitted reports a query that needs a fitted surrogate model.
	ErrModelNotFitted = errors.New("model not fitted")

	// ErrUnsupportedQuery reports an optimum definition that cannot be
	// answered for the given context presence.
	ErrUnsupportedQuery = errors.New("unsupported query")

	// ErrNoObservations reports a query that needs at least one observation.
	ErrNoObservations = errors.New("no observations")

	// ErrInsufficientDegreesOfFreedom reports a confidence interval requested
	// for a prediction with zero degrees of freedom.
	ErrInsufficientDegreesOfFreedom = errors.New("insufficient degrees of freedom")

	// ErrInvalidArgument reports a malformed request that is not about
	// observations, such as an alpha outside (0, 1).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransport reports a failure of the channel to a remote optimizer.
	// Unlike every other sentinel it is safe to retry.
	ErrTransport = errors.New("transport error")
)

// IsLogical reports whether err belongs to the logical (non-transport) part
// of the taxonomy.
func IsLogical(err error) bool {
	for _, s := range []error{
		ErrInvalidObservation, ErrContextRequired, ErrContextNotSupported, ErrModelNotFitted,
		ErrUnsupportedQuery, ErrNoObservations, ErrInsufficientDegreesOfFreedom, ErrInvalidArgument,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
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
	switch {
	case e.Component != "" && e.Op != "":
		prefix = e.Component + ": " + e.Op
	case e.Component != "":
		prefix = e.Component
	default:
		prefix = e.Op
	}

	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		} else {
			msg = e.Err.Error()
		}
	}
	if prefix != "" {
		return prefix + ": " + msg
	}
	return msg
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

// NewError creates a new optimization error with the given message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsOptimizationError reports whether err is, or wraps, an *Error.
func IsOptimizationError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
