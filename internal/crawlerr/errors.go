// Package crawlerr defines the classified error taxonomy shared by the render
// engines and the crawl pipeline.
package crawlerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies a specific failure condition.
type Kind string

const (
	KindTransient        Kind = "TRANSIENT"
	KindTimeout          Kind = "TIMEOUT"
	KindNotFound         Kind = "NOT_FOUND"
	KindIdentityMismatch Kind = "IDENTITY_MISMATCH"
	KindRobotsDenied     Kind = "ROBOTS_DENIED"
	KindHTTPError        Kind = "HTTP_ERROR"
	KindFatal            Kind = "FATAL"
)

// Error wraps a failure with its classification and retry hint.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Retry      bool
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches errors of the same kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return errors.Is(e.Underlying, target)
}

// Transient builds a retryable network/navigation failure.
func Transient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Underlying: err, Retry: true}
}

// Timeout builds a retryable timeout failure. Timeout expiry is a transient
// condition, not immediately fatal.
func Timeout(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Underlying: err, Retry: true}
}

// NotFound marks a selector chain that was exhausted without a match.
// The owning unit of work is skipped, not retried.
func NotFound(message string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Underlying: err, Retry: false}
}

// IdentityMismatch marks a page whose heading did not match the expected
// name. Non-retryable: re-navigating would land on the same page.
func IdentityMismatch(message string) *Error {
	return &Error{Kind: KindIdentityMismatch, Message: message, Retry: false}
}

// RobotsDenied marks a navigation blocked by the robots gate.
func RobotsDenied(message string) *Error {
	return &Error{Kind: KindRobotsDenied, Message: message, Retry: false}
}

// HTTPError marks a non-retryable response status, such as a 404 behind a
// stale link. Re-navigating would get the same answer.
func HTTPError(message string, err error) *Error {
	return &Error{Kind: KindHTTPError, Message: message, Underlying: err, Retry: false}
}

// Fatal marks a failure that must abort the whole run, such as a crashed
// rendering engine.
func Fatal(message string, err error) *Error {
	return &Error{Kind: KindFatal, Message: message, Underlying: err, Retry: false}
}

// Retryable reports whether the error should be retried under the backoff
// budget. Classified errors carry their own hint; bare timeouts and temporary
// network errors are retryable; anything unclassified defaults to retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce.Retry
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if timeoutErr, ok := err.(interface{ Timeout() bool }); ok && timeoutErr.Timeout() {
		return true
	}
	if tempErr, ok := err.(interface{ Temporary() bool }); ok {
		return tempErr.Temporary()
	}

	return true
}

// IsFatal reports whether the error must abort the run.
func IsFatal(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindFatal
}

// KindOf returns the classified kind of an error, or KindTransient for
// unclassified errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransient
}
