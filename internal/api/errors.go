package api

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned by Login for any rejected credential
// pair. The server's detail is deliberately not carried to avoid account
// enumeration through the login form.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSessionExpired is returned when any request comes back unauthorized.
// By the time a caller sees it the session has already been torn down.
var ErrSessionExpired = errors.New("session expired")

// ValidationError reports a client-side precheck failure. No request is
// made when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Error is a non-2xx response decoded at the gateway boundary. Detail holds
// the server's human-readable explanation when it sent one.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// IsConflict reports whether err is a server-side constraint violation
// (duplicate student id, card uid or device name) whose detail should be
// surfaced to the operator verbatim.
func IsConflict(err error) bool {
	var serverErr *Error
	if !errors.As(err, &serverErr) {
		return false
	}
	return serverErr.Status == 400 || serverErr.Status == 409
}

// IsValidation reports whether err was raised before any network call.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
