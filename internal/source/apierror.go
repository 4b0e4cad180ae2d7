package source

import (
	"fmt"
	"io"
	"net/http"
)

// APIError represents an error response from an upstream recipe source.
type APIError struct {
	Source     string
	StatusCode int
	Body       string
}

// Error returns a formatted error string including source, status, and body.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Source, e.StatusCode, e.Body)
}

// HTTPStatus returns the upstream HTTP status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ParseAPIError reads up to 4KB from the response body and returns an APIError.
func ParseAPIError(source string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Source: source, StatusCode: resp.StatusCode, Body: string(body)}
}
