// Package apperror carries the structured errors returned by the service
// layer: a user-facing message, an HTTP status and a machine code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeLeaseCreate        = "LEASE_CREATE_ERROR"
	CodeLeaseUpdate        = "LEASE_UPDATE_ERROR"
	CodeLeaseTerminate     = "LEASE_TERMINATE_ERROR"
	CodeLeaseDelete        = "LEASE_DELETE_ERROR"
	CodeUnitStatusConflict = "UNIT_STATUS_CONFLICT"
	CodeLeaseState         = "LEASE_STATE_CONFLICT"
)

// AppError is an error safe to show to the caller. The cause is kept for
// logging and errors.Is/As but never rendered.
type AppError struct {
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.cause }

// New builds an AppError
func New(status int, code, message string) *AppError {
	return &AppError{Message: message, StatusCode: status, Code: code}
}

func Unauthorized() *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, "authentication required")
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Validation(message string) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message)
}

func Conflict(code, message string) *AppError {
	return New(http.StatusConflict, code, message)
}

// Internal hides cause behind a generic message
func Internal(code, message string, cause error) *AppError {
	e := New(http.StatusInternalServerError, code, message)
	e.cause = cause
	return e
}

// As extracts an AppError from err. Anything else becomes a generic 500.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(CodeInternal, "internal server error", err)
}
