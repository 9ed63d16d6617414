// internal/consentgate/errors.go
package consentgate

import "fmt"

// ValidationError reports bad input caught before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NetworkError wraps a transport-level failure (connection refused, DNS,
// timeout). It never represents an HTTP status response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error reaching consent service: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is an HTTP 401/403 from the consent service.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("consent service rejected credentials (HTTP %d)", e.StatusCode)
}

// ServerError is an HTTP 5xx from the consent service.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("consent service unavailable (HTTP %d)", e.StatusCode)
}

// APIError is a structured error body returned by the consent service, e.g.
// ALREADY_LINKED on a duplicate teacher link.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("consent service error %s (HTTP %d)", e.Code, e.StatusCode)
}
