package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a dispatch failure.
type Kind int

const (
	// KindOther covers unclassified and network-level failures.
	KindOther Kind = iota
	// KindUnauthorized maps HTTP 401.
	KindUnauthorized
	// KindForbidden maps HTTP 403.
	KindForbidden
	// KindBadRequest maps HTTP 400 and "no capable module" dispatch failures.
	KindBadRequest
	// KindParsing indicates a response body that could not be decoded.
	KindParsing
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad request"
	case KindParsing:
		return "parsing error"
	default:
		return "other"
	}
}

// Error is the failure type delivered to dispatch completions. It carries a
// Kind and optionally wraps an underlying cause.
type Error struct {
	Kind  Kind
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsUnauthorized reports whether the error maps an HTTP 401.
func (e *Error) IsUnauthorized() bool { return e.Kind == KindUnauthorized }

// IsForbidden reports whether the error maps an HTTP 403.
func (e *Error) IsForbidden() bool { return e.Kind == KindForbidden }

// Unauthorized returns a KindUnauthorized error wrapping cause.
func Unauthorized(cause error) *Error { return &Error{Kind: KindUnauthorized, Cause: cause} }

// Forbidden returns a KindForbidden error wrapping cause.
func Forbidden(cause error) *Error { return &Error{Kind: KindForbidden, Cause: cause} }

// BadRequest returns a KindBadRequest error with no underlying cause.
func BadRequest() *Error { return &Error{Kind: KindBadRequest} }

// Parsing returns a KindParsing error wrapping the decode failure.
func Parsing(cause error) *Error { return &Error{Kind: KindParsing, Cause: cause} }

// Other returns a KindOther error wrapping cause.
func Other(cause error) *Error { return &Error{Kind: KindOther, Cause: cause} }

// FromStatus maps an HTTP status code onto the error taxonomy. The 2xx band
// never maps to an error and must not be passed here.
func FromStatus(status int, cause error) *Error {
	switch status {
	case http.StatusUnauthorized:
		return Unauthorized(cause)
	case http.StatusForbidden:
		return Forbidden(cause)
	case http.StatusBadRequest:
		return &Error{Kind: KindBadRequest, Cause: cause}
	default:
		return Other(cause)
	}
}

// AsError extracts an *Error from err, if err belongs to the taxonomy.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
