// Package apierror provides standardized API error responses. The
// domain classifies failures into sentinel kinds; this package is
// where the boundary maps kind to status and wire shape.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeBadRequest       Code = "BAD_REQUEST"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeInternalError    Code = "INTERNAL_ERROR"
)

// Error is a standardized API error.
type Error struct {
	// HTTP status code, not serialized.
	Status int `json:"-"`

	Code    Code   `json:"code"`
	Message string `json:"message"`

	// Fields carries field-scoped validation messages, rendered as
	// {"errors": {field: message}}.
	Fields map[string]string `json:"-"`

	// Internal error, logged but never exposed to the client.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WriteJSON writes the error to the response writer. Field-scoped
// errors use the {"errors": {...}} envelope the clients consume; all
// other kinds use a code/message pair.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)

	if len(e.Fields) > 0 {
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": e.Fields})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": map[string]string{string(e.Code): e.Message},
	})
}

// New creates a new API error.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *Error {
	if message == "" {
		message = "You do not have access to this page."
	}
	return New(http.StatusForbidden, CodeForbidden, message)
}

// NotFound creates a 404 error. Deliberately message-free so a denial
// for an invisible resource carries no existence information.
func NotFound() *Error {
	return New(http.StatusNotFound, CodeNotFound, "Resource not found")
}

// ValidationFailed creates a 422 error carrying field messages.
func ValidationFailed(fields map[string]string) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidationFailed,
		Message: "Validation failed",
		Fields:  fields,
	}
}

// InternalError creates a 500 error with a generic message; the cause
// is retained for logging only.
func InternalError(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// FromError converts any error to an API error, wrapping unknown
// kinds as internal.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return InternalError(err)
}
