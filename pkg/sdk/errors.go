package sdk

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the carlens API.
type APIError struct {
	Status  int    // HTTP status code
	Code    string // machine-readable error code
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("carlens: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("carlens: %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsConflict reports whether err is a 409 API error (duplicate image,
// existing tag, finished job).
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsUnauthorized reports whether err is a 401 API error.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
