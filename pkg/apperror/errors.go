package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors used with errors.Is across layers.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInternal      = errors.New("internal error")
)

// AppError carries a stable code, a caller-safe message and the HTTP status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Validation is a user-correctable input problem (400).
func Validation(message string) *AppError {
	return &AppError{Code: "VALIDATION_FAILED", Message: message, Status: http.StatusBadRequest, Err: ErrValidation}
}

// AlreadyExists is a unique-key conflict (409).
func AlreadyExists(message string) *AppError {
	return &AppError{Code: "ALREADY_EXISTS", Message: message, Status: http.StatusConflict, Err: ErrAlreadyExists}
}

// Unauthorized is an authentication failure (401). The message must not say why.
func Unauthorized(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message, Status: http.StatusUnauthorized, Err: ErrUnauthorized}
}

// NotFound is a lookup miss (404).
func NotFound(resource string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: resource + " not found", Status: http.StatusNotFound, Err: ErrNotFound}
}

// Internal hides err behind a generic message (500).
func Internal(err error) *AppError {
	if err == nil {
		err = ErrInternal
	}
	return &AppError{Code: "INTERNAL_ERROR", Message: "an internal error occurred", Status: http.StatusInternalServerError, Err: err}
}

// HTTPStatus maps any error to the status code a handler should send.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-safe message for err. Untyped errors get the generic internal text.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an internal error occurred"
}
