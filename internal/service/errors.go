package service

import (
	"errors"
	"net/http"
)

// ErrUnexpectedResponse is returned when the backend answers with a body
// that is not valid JSON.
var ErrUnexpectedResponse = errors.New("server returned unexpected response")

// ErrNetwork wraps transport failures (DNS, refused connections, timeouts).
var ErrNetwork = errors.New("network error")

// APIError is a non-2xx response from the backend.
// Message is the body's "message" field, or an operation-specific fallback.
type APIError struct {
	Status  int
	Message string

	// Err is ErrUnexpectedResponse when the error body was not JSON.
	Err error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0 if err is not an
// *APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether the backend rejected the credential.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}
