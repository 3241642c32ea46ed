// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All errors that reach the HTTP layer should be AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeSchema   = "SCHEMA_ERROR"

	// Client errors (400)
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidID         = "INVALID_ID"
	CodeUnsupportedIDType = "UNSUPPORTED_ID_TYPE"

	// Not found (404)
	CodeNotFound      = "NOT_FOUND"
	CodeUnknownEntity = "UNKNOWN_ENTITY"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the admin engine.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (entity key, id token, ...)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewUnknownEntity is returned when an entity key is not registered.
func NewUnknownEntity(key string) *AppError {
	return &AppError{
		Code:       CodeUnknownEntity,
		Message:    fmt.Sprintf("unknown entity: %s", key),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": key},
	}
}

// NewUnsupportedIDType is returned when an identifier type has no text coercion.
func NewUnsupportedIDType(entity, goType string) *AppError {
	return &AppError{
		Code:       CodeUnsupportedIDType,
		Message:    fmt.Sprintf("unsupported id type: %s", goType),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"entity": entity, "type": goType},
	}
}

// NewInvalidID is returned when an id token cannot be parsed as the entity's id type.
func NewInvalidID(entity, token string, err error) *AppError {
	return &AppError{
		Code:       CodeInvalidID,
		Message:    fmt.Sprintf("invalid id for %s", entity),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"entity": entity, "id": token},
		Err:        err,
	}
}

// NewSchema creates a schema error. Schema errors abort startup.
func NewSchema(message string) *AppError {
	return &AppError{
		Code:       CodeSchema,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound or CodeUnknownEntity
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound) || HasCode(err, CodeUnknownEntity)
}
