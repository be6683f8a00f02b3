// Package action defines the error taxonomy server actions expose to the
// HTTP layer: an HTTP status plus an i18n message key. The wrapped cause
// is for logs only and never reaches the user.
package action

import "net/http"

type Error struct {
	Status int    // HTTP status to answer with
	Key    string // i18n catalog key for the user-facing message
	Args   []any  // optional Sprintf args for the message
	Err    error  // underlying cause, logged server-side
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Key + ": " + e.Err.Error()
	}
	return e.Key
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid is a validation failure with a specific localized message.
func Invalid(key string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Key: key, Args: args}
}

// Unauthorized is a missing or unusable session.
func Unauthorized(key string) *Error {
	return &Error{Status: http.StatusUnauthorized, Key: key}
}

// Conflict is a request racing an identical one still in flight.
func Conflict(key string) *Error {
	return &Error{Status: http.StatusConflict, Key: key}
}

// Upstream collapses a remote API failure into a generic localized
// message; the raw cause stays in the logs.
func Upstream(key string, err error) *Error {
	return &Error{Status: http.StatusBadGateway, Key: key, Err: err}
}
