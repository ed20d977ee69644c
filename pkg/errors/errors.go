// Package errors provides coded errors for masonry.
//
// Every error that reaches a user, over the CLI or the HTTP API, should carry
// a [Code]. The CLI prints [UserMessage]; the server maps the code to an HTTP
// status and returns it in the JSON error body.
//
// Codes are grouped by prefix:
//   - INVALID_*: the caller sent something unusable (constraints, widths,
//     items, object keys, page tokens)
//   - *NOT_FOUND: the file or session does not exist
//   - UNAUTHORIZED, FORBIDDEN, SESSION_EXPIRED: credential problems
//   - NETWORK_ERROR, TIMEOUT, RATE_LIMITED: transient, worth retrying
//
// Usage:
//
//	if err := c.Validate(); err != nil {
//	    return errors.Wrap(errors.ErrCodeInvalidConstraints, err, "layout section")
//	}
//	if errors.Is(err, errors.ErrCodeFileNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a machine-readable error code.
type Code string

// Input validation errors.
const (
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidConstraints Code = "INVALID_CONSTRAINTS"
	ErrCodeInvalidWidth       Code = "INVALID_WIDTH"
	ErrCodeInvalidItem        Code = "INVALID_ITEM"
	ErrCodeInvalidFormat      Code = "INVALID_FORMAT"
	ErrCodeInvalidObjectKey   Code = "INVALID_OBJECT_KEY"
	ErrCodeInvalidPageToken   Code = "INVALID_PAGE_TOKEN"
)

// Missing resources.
const (
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"
)

// Transient failures.
const (
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"
)

// Credential problems.
const (
	ErrCodeUnauthorized   Code = "UNAUTHORIZED"
	ErrCodeForbidden      Code = "FORBIDDEN"
	ErrCodeSessionExpired Code = "SESSION_EXPIRED"
)

// Everything else.
const (
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Invalid reports whether c is an input validation code.
func (c Code) Invalid() bool { return strings.HasPrefix(string(c), "INVALID_") }

// NotFound reports whether c names a missing resource.
func (c Code) NotFound() bool { return strings.HasSuffix(string(c), "NOT_FOUND") }

// Temporary reports whether an operation failing with c may succeed later.
func (c Code) Temporary() bool {
	switch c {
	case ErrCodeNetwork, ErrCodeTimeout, ErrCodeRateLimited:
		return true
	}
	return false
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without its code,
// or err.Error() for uncoded errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
