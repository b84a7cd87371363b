// Package errors carries errors across the RPC boundary. It maps the
// optimizer's error taxonomy to wire codes and back, so that a remote client
// can re-raise the same sentinel the server saw.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/copyleftdev/bayesopt/internal/optimization"
)

// Wire codes. The JSON-RPC 2.0 reserved codes keep their standard meaning;
// the -320xx range carries the optimizer taxonomy.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	CodeNotFound            = -32004
	CodeInvalidObservation  = -32010
	CodeContextRequired     = -32011
	CodeContextNotSupported = -32012
	CodeModelNotFitted      = -32013
	CodeUnsupportedQuery    = -32014
	CodeNoObservations      = -32015
	CodeIncompatibleShape   = -32016
	CodeInsufficientDOF     = -32017
)

// ErrNotFound reports an unknown optimizer or snapshot ID.
var ErrNotFound = stderrors.New("not found")

// taxonomy is ordered so that the most specific sentinel wins:
// ErrIncompatibleShape also matches ErrInvalidObservation.
var taxonomy = []struct {
	code     int
	sentinel error
}{
	{CodeIncompatibleShape, optimization.ErrIncompatibleShape},
	{CodeInvalidObservation, optimization.ErrInvalidObservation},
	{CodeContextRequired, optimization.ErrContextRequired},
	{CodeContextNotSupported, optimization.ErrContextNotSupported},
	{CodeModelNotFitted, optimization.ErrModelNotFitted},
	{CodeUnsupportedQuery, optimization.ErrUnsupportedQuery},
	{CodeNoObservations, optimization.ErrNoObservations},
	{CodeInsufficientDOF, optimization.ErrInsufficientDegreesOfFreedom},
	{CodeInvalidParams, optimization.ErrInvalidArgument},
	{CodeNotFound, ErrNotFound},
}

// Error represents an error with a wire code, context and stack trace.
type Error struct {
	// Code is the wire code the error travels with.
	Code int
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// The stack trace, captured where the error was created
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
	}

	if e.Component != "" {
		if builder.Len() > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("component=")
		builder.WriteString(e.Component)
	}

	if e.Err != nil && e.Err.Error() != e.Message {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithMessage adds a message to the error.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent adds a component to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a new error with a code and a message.
func New(code int, msg string) *Error {
	return &Error{
		Code:    code,
		Err:     Sentinel(code),
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Errorf creates a new error with a code and a formatted message.
func Errorf(code int, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap classifies err and wraps it with additional context. An *Error is
// returned as-is apart from the message.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if !stderrors.As(err, &e) {
		e = &Error{
			Code:  RPCCode(err),
			Err:   err,
			Stack: getStackTrace(),
		}
	}

	if msg != "" {
		e.Message = msg
	}

	return e
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// RPCCode returns the wire code of err: the code of an *Error, the code of
// the taxonomy sentinel err matches, or CodeInternal.
func RPCCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	for _, t := range taxonomy {
		if stderrors.Is(err, t.sentinel) {
			return t.code
		}
	}
	return CodeInternal
}

// Sentinel returns the taxonomy sentinel for a wire code, or nil for codes
// outside the taxonomy.
func Sentinel(code int) error {
	for _, t := range taxonomy {
		if t.code == code {
			return t.sentinel
		}
	}
	switch code {
	case CodeParseError, CodeInvalidRequest, CodeMethodNotFound:
		return optimization.ErrInvalidArgument
	}
	return nil
}

// FromRPCCode rebuilds a server error on the client side. Errors in the
// taxonomy match their sentinel with errors.Is; anything else is treated as
// a transport failure.
func FromRPCCode(code int, message string) error {
	sentinel := Sentinel(code)
	if sentinel == nil {
		sentinel = optimization.ErrTransport
	}
	return &Error{Code: code, Err: sentinel, Message: message, Component: "remote"}
}

// HTTPStatus maps err to the status of a REST response.
func HTTPStatus(err error) int {
	switch RPCCode(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeModelNotFitted, CodeNoObservations, CodeInsufficientDOF:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// GRPCCode maps a wire code to the gRPC status code it travels with.
func GRPCCode(code int) codes.Code {
	switch code {
	case CodeNotFound:
		return codes.NotFound
	case CodeInternal:
		return codes.Internal
	case CodeMethodNotFound:
		return codes.Unimplemented
	case CodeModelNotFitted, CodeNoObservations, CodeInsufficientDOF:
		return codes.FailedPrecondition
	default:
		return codes.InvalidArgument
	}
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
