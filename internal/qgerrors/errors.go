// Package qgerrors defines the structured error taxonomy used across the
// quality-gate core: a small Kind enum attached to a single wrapping-capable
// error type, in the idiom the teacher repo uses for its own error type.
package qgerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that need to branch on it (HTTP
// status mapping, event emission, logging level).
type Kind string

const (
	// InvalidInput covers malformed or missing request fields, and a
	// project path that does not exist.
	InvalidInput Kind = "invalid_input"
	// NotFound covers an unknown project id or metrics not yet available.
	NotFound Kind = "not_found"
	// Conflict covers a session that already has a one-shot run in flight,
	// or a one-shot run and a watcher requested for the same session.
	Conflict Kind = "conflict"
	// ToolFailure covers a module that exited non-zero.
	ToolFailure Kind = "tool_failure"
	// ToolSkipped covers an adapter that returned an empty argv.
	ToolSkipped Kind = "tool_skipped"
	// InternalError covers an unexpected exception inside a module or the
	// orchestrator.
	InternalError Kind = "internal_error"
	// Cancelled covers a run or watcher stopped during shutdown or a
	// session stop request.
	Cancelled Kind = "cancelled"
)

// Error is the structured error type threaded through the core. It carries
// a Kind for programmatic dispatch, an optional Component tag for logging,
// and an optional wrapped Cause.
type Error struct {
	Kind      Kind
	Message   string
	Component string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Component != "" {
			return fmt.Sprintf("[%s] %s: %s: %v", e.Component, e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is comparison by Kind: any target *Error of the same
// Kind matches, whatever its Message or Cause, letting callers write
// `errors.Is(err, qgerrors.New(qgerrors.NotFound, ""))`.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithComponent returns a copy of e tagged with the given component name.
func (e *Error) WithComponent(component string) *Error {
	cp := *e
	cp.Component = component
	return &cp
}

// New constructs an Error of the given Kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given Kind that wraps cause. If cause is
// already a *Error of the same Kind it is returned as-is (no double
// wrapping); otherwise a new Error is built around it.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	if cause == nil {
		return New(kind, format, args...)
	}
	var existing *Error
	if errors.As(cause, &existing) && existing.Kind == kind {
		return existing
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it is, or wraps, a *Error; otherwise
// it returns InternalError, treating any unrecognised error as unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalError
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func InvalidInputf(format string, args ...interface{}) *Error {
	return New(InvalidInput, format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(Conflict, format, args...)
}

func ToolFailuref(format string, args ...interface{}) *Error {
	return New(ToolFailure, format, args...)
}

func Internalf(format string, args ...interface{}) *Error {
	return New(InternalError, format, args...)
}

func Cancelledf(format string, args ...interface{}) *Error {
	return New(Cancelled, format, args...)
}
