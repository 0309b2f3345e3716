// Package tzerr defines the failure taxonomy for tz-oracle.
//
// Every failure reported by the comparator, the validators, or the CLI maps
// to exactly one FailureClass. The class drives the process exit code and lets
// callers tell a reference-data gap apart from a resolver defect.
package tzerr

import "fmt"

// FailureClass is a stable failure category.
type FailureClass string

const (
	InvalidCoordinates  FailureClass = "INVALID_COORDINATES"
	ZoneResolution      FailureClass = "ZONE_RESOLUTION"
	AssertionMismatch   FailureClass = "ASSERTION_MISMATCH"
	ErrorBudgetExceeded FailureClass = "ERROR_BUDGET_EXCEEDED"
	ScenarioPanic       FailureClass = "SCENARIO_PANIC"
	CLIUsage            FailureClass = "CLI_USAGE"
	InternalIO          FailureClass = "INTERNAL_IO"
	InternalError       FailureClass = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for this failure class.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case InternalIO, InternalError:
		return 10
	default:
		return 2
	}
}

// Error is the structured error type for classified oracle failures.
type Error struct {
	Class   FailureClass
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tzerr: %s: %s: %v", e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("tzerr: %s: %s", e.Class, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class FailureClass, message string) *Error {
	return &Error{Class: class, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(class FailureClass, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, message string, cause error) *Error {
	return &Error{Class: class, Message: message, Cause: cause}
}

// classifier is implemented by error types that carry a class without
// embedding *Error, so their messages stay free of the tzerr prefix.
type classifier interface {
	FailureClass() FailureClass
}

// ClassOf reports the class of the outermost classified error in err's
// chain. Unclassified errors report InternalError; a nil error reports "".
func ClassOf(err error) FailureClass {
	if err == nil {
		return ""
	}
	if fc, ok := classOf(err); ok {
		return fc
	}
	return InternalError
}

func classOf(err error) (FailureClass, bool) {
	switch e := err.(type) {
	case *Error:
		return e.Class, true
	case classifier:
		return e.FailureClass(), true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		if next := u.Unwrap(); next != nil {
			return classOf(next)
		}
	case interface{ Unwrap() []error }:
		for _, next := range u.Unwrap() {
			if fc, ok := classOf(next); ok {
				return fc, true
			}
		}
	}
	return "", false
}
