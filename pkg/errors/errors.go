package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Common error codes
const (
	ErrBadRequest ErrorCode = iota + 1000
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrConflict
	ErrInternal
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to its HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors
func BadRequest(message string, err error) *AppError {
	return &AppError{Code: ErrBadRequest, Message: message, Err: err}
}

func Unauthorized(message string, err error) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{Code: ErrUnauthorized, Message: message, Err: err}
}

func Forbidden(message string, err error) *AppError {
	if message == "" {
		message = "permission denied"
	}
	return &AppError{Code: ErrForbidden, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Code: ErrConflict, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}
