// Package hearthrunerr defines the closed error-kind taxonomy shared by every
// transport (HTTP, stdio, CLI) so status mapping happens in exactly one place.
package hearthrunerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the closed set of error kinds a component may surface.
type Kind string

const (
	SourceNotFound          Kind = "SourceNotFound"
	UnknownFormat           Kind = "UnknownFormat"
	UnsupportedArchitecture Kind = "UnsupportedArchitecture"
	IncompatibleRecipe      Kind = "IncompatibleRecipe"
	OverBudget              Kind = "OverBudget"
	NetworkFetchFailed      Kind = "NetworkFetchFailed"
	AuthRequired            Kind = "AuthRequired"
	NativeBackend           Kind = "NativeBackend"
	NoModelLoaded           Kind = "NoModelLoaded"
	UnknownModel            Kind = "UnknownModel"
	NotSupportedByEngine    Kind = "NotSupportedByEngine"
	GenerateError           Kind = "GenerateError"
	Cancelled               Kind = "Cancelled"
	Timeout                 Kind = "Timeout"
	InvalidRequest          Kind = "InvalidRequest"
)

// Error is the user-visible error shape: {kind, message, hint?}.
type Error struct {
	Kind    Kind
	Message string
	Hint    string

	// Wrapped preserves the underlying cause for errors.Unwrap, never
	// shown to callers directly.
	Wrapped error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is(err, hearthrunerr.New(hearthrunerr.OverBudget, "")) match
// any *Error of the same kind, by comparing kinds only.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs a typed Error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs a typed Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error, preserving it for Unwrap.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Wrapped: cause}
}

// WithHint returns a copy of the error carrying an operator-facing hint.
func (e *Error) WithHint(hint string) *Error {
	cp := *e
	cp.Hint = hint
	return &cp
}

// Sentinel returns true if err carries the given Kind anywhere in its chain.
func Sentinel(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Wrapped
	}
	return false
}

// HTTPStatus maps a Kind to the status code the HTTP transport should use.
// This is the single place that mapping happens.
func HTTPStatus(kind Kind) int {
	switch kind {
	case SourceNotFound, UnknownModel:
		return http.StatusNotFound
	case NoModelLoaded:
		return http.StatusServiceUnavailable
	case NotSupportedByEngine:
		return http.StatusNotImplemented
	case InvalidRequest, UnknownFormat, UnsupportedArchitecture, IncompatibleRecipe:
		return http.StatusBadRequest
	case AuthRequired:
		return http.StatusUnauthorized
	case Timeout:
		return http.StatusGatewayTimeout
	case Cancelled:
		return 499 // client closed request, nginx convention
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts a *Error from err, wrapping it as an internal
// NativeBackend error if it isn't already one of our kinds.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(NativeBackend, err)
}
