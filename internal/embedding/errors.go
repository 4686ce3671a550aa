package embedding

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by embedding providers.
var (
	// ErrUnconfigured indicates no credential is configured for the provider.
	ErrUnconfigured = errors.New("embedding provider not configured")

	// ErrRateLimited indicates the provider rejected the request for rate limiting.
	ErrRateLimited = errors.New("embedding rate limit exceeded")

	// ErrNetwork indicates a network failure talking to the provider.
	ErrNetwork = errors.New("network error communicating with embedding provider")

	// ErrInvalidResponse indicates an unexpected response shape.
	ErrInvalidResponse = errors.New("invalid embedding response")
)

// APIError represents a non-success HTTP response from an embedding API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s embedding API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsUnconfigured returns true if err indicates a missing credential.
func IsUnconfigured(err error) bool {
	if errors.Is(err, ErrUnconfigured) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsRateLimited returns true if err indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(provider string, resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s status %d", ErrRateLimited, provider, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &APIError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    formatErrorBody(resp.Body),
		}
	}
	return nil
}
