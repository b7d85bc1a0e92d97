package geolocation

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a location failure.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindUnavailable      ErrorKind = "position_unavailable"
	KindTimeout          ErrorKind = "timeout"
	KindUnknown          ErrorKind = "unknown"
)

// Positioning source error codes, shared by all providers.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// KindForCode maps a source error code to its kind. The mapping is
// total: codes outside {1,2,3} map to KindUnknown.
func KindForCode(code int) ErrorKind {
	switch code {
	case CodePermissionDenied:
		return KindPermissionDenied
	case CodePositionUnavailable:
		return KindUnavailable
	case CodeTimeout:
		return KindTimeout
	default:
		return KindUnknown
	}
}

// Error is a classified location failure carrying the originating
// source error code and a human-readable message.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
}

// NewError builds an Error from a source error code, preserving the
// source-supplied message when present.
func NewError(code int, message string) *Error {
	kind := KindForCode(code)
	if message == "" {
		message = defaultMessage(kind)
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

func defaultMessage(kind ErrorKind) string {
	switch kind {
	case KindPermissionDenied:
		return "location permission denied"
	case KindUnavailable:
		return "position unavailable"
	case KindTimeout:
		return "position request timed out"
	default:
		return "unknown location error"
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Normalize coerces any error into a *Error. Already-classified errors
// pass through, context deadline expiry becomes a timeout, everything
// else becomes KindUnknown with the original message preserved.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeTimeout, "")
	}
	return &Error{Kind: KindUnknown, Message: err.Error()}
}

// KindOf reports the kind of any error, KindUnknown for foreign ones.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return Normalize(err).Kind
}
