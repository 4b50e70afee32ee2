// Package apperr carries typed request errors with bilingual (Bengali +
// English) human-readable messages. Domain services return these directly;
// handlers translate them to JSON at the boundary.
package apperr

import "net/http"

// Error is a request-level failure with an HTTP status code.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an error with an explicit status code.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// NotFound marks a referenced user/product/verification as absent.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// Conflict marks a precondition failure such as re-verifying an already
// verified product or submitting a duplicate rating.
func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

// BadRequest marks an invalid request value, e.g. an unknown status.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

// Unauthorized marks failed authentication.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

// Internal wraps an unexpected failure, keeping the underlying message.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "সার্ভার ত্রুটি (Server error): "+err.Error())
}

// From returns err as an *Error, wrapping unexpected failures as Internal.
func From(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal(err)
}
