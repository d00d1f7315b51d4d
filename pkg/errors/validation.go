package errors

import (
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// ValidateURL validates a base URL string for safety.
// It ensures the URL parses and has a safe scheme (http or https) and a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "URL cannot be parsed")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL must include a host")
	}

	return nil
}

// ValidateEndpoint validates an endpoint path appended to the base URL.
//
// Validation rules:
//   - Endpoint cannot be empty
//   - Must start with "/"
//   - No control characters or null bytes
//   - No path traversal sequences (..)
//   - No backslashes
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return New(ErrCodeInvalidInput, "endpoint cannot be empty")
	}

	if !strings.HasPrefix(endpoint, "/") {
		return New(ErrCodeInvalidInput, "endpoint must start with /: %q", endpoint)
	}

	for _, r := range endpoint {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "endpoint contains invalid control characters")
		}
	}

	if strings.Contains(endpoint, "..") {
		return New(ErrCodeInvalidInput, "endpoint cannot contain path traversal sequences (..)")
	}

	if strings.Contains(endpoint, "\\") {
		return New(ErrCodeInvalidInput, "endpoint cannot contain backslashes")
	}

	return nil
}

// ValidateMethod accepts the verbs the gateway issues:
// GET, POST, PUT, PATCH and DELETE.
func ValidateMethod(method string) error {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return nil
	default:
		return New(ErrCodeInvalidInput, "unsupported method %q", method)
	}
}
