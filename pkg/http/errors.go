package http

import (
	"fmt"
	"net/http"
)

// AppError is a client-facing error with its HTTP status. The wrapped cause
// is never serialized.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	cause   error
}

func newAppError(status int, code, field, message string) *AppError {
	return &AppError{Status: status, Code: code, Field: field, Message: message}
}

func (e *AppError) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *AppError) Unwrap() error { return e.cause }

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

// Wrap attaches the internal cause for logging and errors.Is.
func (e *AppError) Wrap(err error) *AppError {
	e.cause = err
	return e
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return newAppError(http.StatusNotFound, "ERR_NOT_FOUND", "", fmt.Sprintf(format, a...))
}

func BadRequestError(field, message string) *AppError {
	return newAppError(http.StatusBadRequest, "ERR_BAD_REQUEST", field, message)
}

func TooManyRequestsError(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, "ERR_RATE_LIMITED", "", message)
}
