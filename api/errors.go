package api

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when a private endpoint is called
// without a configured key, secret and passphrase.
var ErrMissingCredentials = errors.New("api credentials are not configured")

// APIError describes a request the exchange rejected, either at the HTTP
// level or with a non-success business code. It carries only the method,
// path and the exchange's own code and message; credentials never appear
// in it.
type APIError struct {
	Status  int
	Code    string
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitget: %s %s failed: status %d code %s: %s",
		e.Method, e.Path, e.Status, e.Code, e.Message)
}
