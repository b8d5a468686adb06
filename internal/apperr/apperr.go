// Package apperr defines the error taxonomy shared by handlers and services.
// Repository sentinels are normalized into one of these kinds at the boundary
// so no raw store detail ever reaches a caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into the platform's taxonomy.
type Kind int

const (
	// Internal is the fallback for unexpected store or remote-service failures.
	Internal Kind = iota
	// InvalidArgument indicates malformed or missing input, including bad ID formats.
	InvalidArgument
	// Unauthenticated indicates missing or invalid credentials.
	Unauthenticated
	// Forbidden indicates an authenticated principal lacking rights to the resource.
	Forbidden
	// NotFound indicates the root resource is absent.
	NotFound
	// Conflict indicates a duplicate unique field or duplicate edge.
	Conflict
)

// HTTPStatus maps the kind onto its response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a taxonomy kind, a caller-safe message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a taxonomy error with a caller-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a taxonomy error. The cause is logged, never serialized.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the taxonomy kind from err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the caller-safe message for err. Unclassified errors get a
// generic message so internal detail never leaks.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
