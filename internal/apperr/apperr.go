// Package apperr is the single error taxonomy shared by all services.
// Every error carries a stable kind, a numeric business code and a
// human-readable message; handlers map kinds to transport status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAlreadyExists
	KindPermissionDenied
	KindInvariantViolation
	KindUnauthorized
)

// Business codes, one block per transport class.
const (
	CodeValidation      = 40001
	CodeInvariant       = 40003
	CodeAlreadyExists   = 40005
	CodeTokenMissing    = 40101
	CodeTokenExpired    = 40102
	CodeTokenInvalid    = 40103
	CodeBadCredentials  = 40105
	CodePermission      = 40301
	CodeNotInGroup      = 40302
	CodeUserNotFound    = 40401
	CodeGroupNotFound   = 40402
	CodeProjectNotFound = 40403
	CodeTaskNotFound    = 40404
	CodeMemberNotFound  = 40405
	CodeInternal        = 50001
)

type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d:%s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d:%s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match on kind and code so sentinel-style comparisons
// work without exporting one variable per failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Code == 0 || e.Code == t.Code)
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvariantViolation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code int, format string, args ...interface{}) *Error {
	return New(KindNotFound, code, format, args...)
}

func AlreadyExists(format string, args ...interface{}) *Error {
	return New(KindAlreadyExists, CodeAlreadyExists, format, args...)
}

func PermissionDenied(code int, format string, args ...interface{}) *Error {
	return New(KindPermissionDenied, code, format, args...)
}

func Invariant(format string, args ...interface{}) *Error {
	return New(KindInvariantViolation, CodeInvariant, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, CodeValidation, format, args...)
}

func Unauthorized(code int, format string, args ...interface{}) *Error {
	return New(KindUnauthorized, code, format, args...)
}

// Wrap turns an unexpected lower-level failure into an internal error,
// preserving the cause. Known kinds pass through unchanged.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
