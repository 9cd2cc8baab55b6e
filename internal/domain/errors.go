package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for a 404 on contact get/update.
	ErrNotFound = errors.New("contact not found")

	// ErrReauthRequired is returned when the refresh token is invalid or
	// revoked; the user must reauthorize the provider.
	ErrReauthRequired = errors.New("reauthorization required")

	// ErrCredentialNotFound is returned when no credential exists for a
	// user/provider pair.
	ErrCredentialNotFound = errors.New("credential not found")
)

// APIError is a non-2xx, non-404 CRM response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm api error (status %d): %s", e.StatusCode, e.Body)
}

// HTTPError is a transport-level failure on a CRM call (DNS, timeout,
// connection reset).
type HTTPError struct {
	Err error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("crm http error: %v", e.Err)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// RefreshTransportError is a network or provider-availability failure on
// the token refresh call, distinct from an invalid refresh token. Callers
// may retry under their own policy.
type RefreshTransportError struct {
	Err error
}

func (e *RefreshTransportError) Error() string {
	return fmt.Sprintf("token refresh transport error: %v", e.Err)
}

func (e *RefreshTransportError) Unwrap() error { return e.Err }
