// Package apperr defines the error taxonomy shared by the engine, the store
// and the HTTP surface. Every failure that crosses the engine boundary is an
// *Error carrying a Kind and a human-readable message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindValidation                Kind = "validation"
	KindNotFound                  Kind = "not_found"
	KindDuplicateName             Kind = "duplicate_name"
	KindClassificationUnavailable Kind = "classification_unavailable"
	KindDeletionFailed            Kind = "deletion_failed"
	KindUnauthorized              Kind = "unauthorized"
	KindForbidden                 Kind = "forbidden"
	KindInternal                  Kind = "internal"
)

// Error is the structured error returned across the engine boundary.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.Field)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Validation reports caller-fixable bad input on a specific field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NotFound reports a missing entity, or one the caller does not own.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// DuplicateName reports a uniqueness violation on a name field.
func DuplicateName(field, message string) *Error {
	return &Error{Kind: KindDuplicateName, Field: field, Message: message}
}

// ClassificationUnavailable wraps a transport-level failure of the
// external classifier.
func ClassificationUnavailable(cause error) *Error {
	return &Error{Kind: KindClassificationUnavailable, Message: "sentiment classification unavailable", Cause: cause}
}

// DeletionFailed reports a cascade that was rolled back.
func DeletionFailed(cause error) *Error {
	return &Error{Kind: KindDeletionFailed, Message: "deletion rolled back", Cause: cause}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// KindOf returns the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err (or anything it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// As converts err into an *Error, wrapping unknown errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}

// HTTPStatus maps a Kind onto an HTTP status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateName:
		return http.StatusConflict
	case KindClassificationUnavailable:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
