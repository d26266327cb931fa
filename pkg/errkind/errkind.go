// Package errkind defines the error taxonomy shared by the pipeline stages.
// Every stage wraps its failure in an *Error so the coordinator can decide
// whether to retry and which message to show.
package errkind

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	Unknown             Kind = "unknown"
	InvalidInput        Kind = "invalid_input"
	Network             Kind = "network"
	HTTPStatus          Kind = "http_status"
	UnsupportedLanguage Kind = "unsupported_language"
	InvalidResponse     Kind = "invalid_response"
	BackendUnavailable  Kind = "backend_unavailable"
	Timeout             Kind = "timeout"
	RetriesExhausted    Kind = "retries_exhausted"
)

// Error is a classified failure. Status is set for HTTPStatus, Attempts for
// RetriesExhausted.
type Error struct {
	Kind     Kind
	Op       string
	Status   int
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case HTTPStatus:
		msg = fmt.Sprintf("%s: http status %d", e.Op, e.Status)
	case RetriesExhausted:
		msg = fmt.Sprintf("%s: retries exhausted after %d attempts", e.Op, e.Attempts)
	default:
		msg = fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err under kind. A nil err is allowed.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an *Error from a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// StatusError reports a non-2xx response.
func StatusError(op string, status int) *Error {
	return &Error{Kind: HTTPStatus, Op: op, Status: status}
}

// Of returns the kind of the outermost *Error in err's chain. Context
// deadline errors without a wrapper are reported as Timeout.
func Of(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Unknown
}

// Cause returns the kind of the innermost *Error in err's chain, looking
// through RetriesExhausted wrappers.
func Cause(err error) Kind {
	kind := Of(err)
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		kind = e.Kind
		err = e.Err
	}
	if kind == RetriesExhausted && errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return kind
}

// Is reports whether any *Error in err's chain has the given kind. A bare
// context deadline error counts as Timeout, matching Of.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return kind == Timeout && errors.Is(err, context.DeadlineExceeded)
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// Retryable reports whether a failed attempt may be repeated. Input errors,
// language rejections and client-side HTTP statuses never succeed on retry.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return !errors.Is(err, context.Canceled)
	}
	switch e.Kind {
	case InvalidInput, UnsupportedLanguage, Timeout, RetriesExhausted:
		return false
	case HTTPStatus:
		return e.Status >= 500 || e.Status == 408 || e.Status == 429
	default:
		return true
	}
}
