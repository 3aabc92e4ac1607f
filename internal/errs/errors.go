// Package errs provides the unified error type used across all of blobgate.
//
// Every subsystem (filestore drivers, proxy, client) wraps its native errors
// into *errs.Error before returning them to callers. Callers use the Is*
// predicates to handle errors without importing driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "get object timed out", minioErr)
//
//	// In a handler, check the error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// All backends (MinIO, S3, Postgres, MySQL, …) map their native errors to one
// of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no object, no bucket
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindConflict                 // target already exists
	ErrKindTooLarge                 // payload exceeds a configured limit
	ErrKindNotConfigured            // client has no endpoint to talk to
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindConflict:
		return "conflict"
	case ErrKindTooLarge:
		return "too_large"
	case ErrKindNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all blobgate subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result
// (missing object, unknown bucket, …).
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsConflict reports whether err means the target already exists.
func IsConflict(err error) bool {
	return KindOf(err) == ErrKindConflict
}

// IsTooLarge reports whether err means a size limit was exceeded.
func IsTooLarge(err error) bool {
	return KindOf(err) == ErrKindTooLarge
}

// IsNotConfigured reports whether err is a local precondition failure that
// never reached the network.
func IsNotConfigured(err error) bool {
	return KindOf(err) == ErrKindNotConfigured
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// --- HTTP mapping ---

// HTTPStatus returns the status code the proxy answers with for err.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrKindNotFound:
		return http.StatusNotFound
	case ErrKindInvalidInput:
		return http.StatusBadRequest
	case ErrKindPermissionDenied:
		return http.StatusUnauthorized
	case ErrKindConflict:
		return http.StatusConflict
	case ErrKindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus is the inverse of HTTPStatus, used by the client to
// classify proxy responses.
func FromHTTPStatus(status int) ErrKind {
	switch status {
	case http.StatusNotFound:
		return ErrKindNotFound
	case http.StatusBadRequest:
		return ErrKindInvalidInput
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrKindPermissionDenied
	case http.StatusConflict:
		return ErrKindConflict
	case http.StatusRequestEntityTooLarge:
		return ErrKindTooLarge
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ErrKindTimeout
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return ErrKindConnectionFailed
	default:
		return ErrKindUnknown
	}
}
