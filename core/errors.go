package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ErrorKind classifies domain errors so the transport layer can pick a status code.
type ErrorKind int

const (
	KindInvalid ErrorKind = iota + 1
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// AppError is an expected domain failure. Packages declare them as sentinel values.
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (err *AppError) Error() string { return err.Message }

// StatusCode maps the error kind to an HTTP status code.
func (err *AppError) StatusCode() int {
	switch err.Kind {
	case KindInvalid:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func NewInvalidError(msg string) error   { return &AppError{Kind: KindInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &AppError{Kind: KindForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &AppError{Kind: KindNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &AppError{Kind: KindConflict, Message: msg} }

func NewTooManyRequestsError(msg string) error {
	return &AppError{Kind: KindTooManyRequests, Message: msg}
}

// ErrForbidden is returned when the caller may not act on a resource.
var ErrForbidden = NewForbiddenError("permission denied")

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
