// Package apperr defines the error taxonomy shared by the catalog, cache,
// gate and OAuth components, and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers that decide fallback behavior.
type Kind string

const (
	// KindInternal is any error that carries no explicit classification.
	KindInternal Kind = "INTERNAL"
	// KindInvalidArgument marks malformed input such as a bad page size.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	// KindNotFound marks an unknown talent or a missing catalog.
	KindNotFound Kind = "NOT_FOUND"
	// KindNetwork marks timeouts, connection failures and non-2xx upstreams.
	KindNetwork Kind = "NETWORK_ERROR"
	// KindStorage marks disk read/write failures.
	KindStorage Kind = "STORAGE_ERROR"
	// KindSecurity marks path traversal, identifier mismatch and OAuth state failures.
	KindSecurity Kind = "SECURITY_VIOLATION"
	// KindUnauthorized marks missing or unusable OAuth credentials.
	KindUnauthorized Kind = "UNAUTHORIZED"
)

// Error is the canonical error type. Message is safe to show to clients;
// Cause is only for server-side logs.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// InvalidArgument creates a KindInvalidArgument error.
func InvalidArgument(msg string) *Error { return New(KindInvalidArgument, msg) }

// NotFound creates a KindNotFound error for a named resource.
func NotFound(resource string) *Error { return New(KindNotFound, resource+" not found") }

// Network wraps a transport failure.
func Network(msg string, cause error) *Error { return Wrap(KindNetwork, msg, cause) }

// Storage wraps a filesystem or database failure.
func Storage(msg string, cause error) *Error { return Wrap(KindStorage, msg, cause) }

// Security creates a KindSecurity error.
func Security(msg string) *Error { return New(KindSecurity, msg) }

// Unauthorized creates a KindUnauthorized error.
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }

// KindOf returns the kind of the first *Error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNetwork:
		return http.StatusServiceUnavailable
	case KindSecurity:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
