package trakt

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the requested record does not exist upstream
	ErrNotFound = errors.New("not found upstream")

	// ErrLookupFailure is returned for any other failed request
	ErrLookupFailure = errors.New("lookup failed")

	// ErrUserNotFound is returned when the user profile does not exist
	ErrUserNotFound = errors.New("user not found")
)

// APIError is a non-2xx response from the Trakt API
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request %s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is maps 404 to ErrNotFound and every other status to ErrLookupFailure
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrLookupFailure:
		return e.StatusCode != http.StatusNotFound
	}
	return false
}

// Retryable reports whether the request may succeed if repeated
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
