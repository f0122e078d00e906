package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the uniform error type returned by services. Handlers never map
// statuses themselves; the central fiber ErrorHandler renders the envelope.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with an explicit status code.
func New(statusCode int, message string, err error) *Error {
	return &Error{StatusCode: statusCode, Message: message, Err: err}
}

// BadRequest covers validation failures and duplicate username/email.
func BadRequest(message string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Message: message}
}

// Unauthorized covers missing/invalid/expired tokens and bad credentials.
func Unauthorized(message string) *Error {
	return &Error{StatusCode: http.StatusUnauthorized, Message: message}
}

// NotFound covers missing users and notes (including foreign-owned notes).
func NotFound(message string) *Error {
	return &Error{StatusCode: http.StatusNotFound, Message: message}
}

// Upstream covers object-store upload/delete failures.
func Upstream(message string, err error) *Error {
	return &Error{StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// Internal covers unexpected failures.
func Internal(message string, err error) *Error {
	return &Error{StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// From converts any error into an *Error, defaulting to Internal so that
// unexpected failures never leak their details to the client.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{StatusCode: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}
