// Package apperr defines the error kinds shared by stores, the participation
// coordinator and HTTP handlers.
//
// An *E carries a Kind, a public message that is safe to return to API
// clients, and an optional cause that is only ever logged.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindUnauthorized
	KindForbidden
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// E is an application error.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

// Is matches another *E of the same kind and message, so sentinel values
// such as ErrInitiativeFull work with errors.Is.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func NotFound(msg string) *E   { return &E{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *E   { return &E{Kind: KindConflict, Message: msg} }
func Validation(msg string) *E { return &E{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) *E {
	return &E{Kind: KindUnauthorized, Message: msg}
}
func Forbidden(msg string) *E { return &E{Kind: KindForbidden, Message: msg} }

// Unavailable is a retryable failure, typically a timeout against the
// database. The write may or may not have been applied.
func Unavailable(msg string, cause error) *E {
	return &E{Kind: KindUnavailable, Message: msg, Err: cause}
}

// Internal wraps an unexpected failure. msg is what the client sees.
func Internal(msg string, cause error) *E {
	return &E{Kind: KindInternal, Message: msg, Err: cause}
}

// Wrap classifies err. Existing *E values pass through unchanged, deadline
// errors become Unavailable and anything else becomes Internal with msg.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *E
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable("Service temporarily unavailable, please retry", err)
	}
	return Internal(msg, err)
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}
	return KindInternal
}

// Message returns the public message for err.
func Message(err error) string {
	var e *E
	if errors.As(err, &e) {
		return e.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Service temporarily unavailable, please retry"
	}
	return "Server error"
}

// Is reports whether err is an application error of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
