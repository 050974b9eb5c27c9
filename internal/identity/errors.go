package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured is returned when the identity provider keys are
	// missing; dependent endpoints fail closed rather than no-op.
	ErrNotConfigured = errors.New("identity: provider not configured")

	// ErrMissingCredentials is returned when email or password is absent.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrMissingEmail is returned when an email-only operation gets none.
	ErrMissingEmail = errors.New("email is required")

	// ErrMissingRefreshToken is returned when a refresh has no token.
	ErrMissingRefreshToken = errors.New("refresh_token is required")
)

// APIError is an error response from the hosted identity provider. The
// provider message is preserved verbatim because callers match on it
// ("Email not confirmed" drives the resend-verification UI path).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity: provider returned %d: %s", e.Status, e.Message)
}

// IsEmailNotConfirmed reports whether err is the provider's unverified
// address rejection.
func IsEmailNotConfirmed(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "email not confirmed")
}

// IsSessionExpired reports whether err means the refresh token is no
// longer usable, which must sign the caller out.
func IsSessionExpired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == 400 || apiErr.Status == 401 {
		msg := strings.ToLower(apiErr.Message)
		return strings.Contains(msg, "refresh_token_not_found") ||
			strings.Contains(msg, "refresh token not found") ||
			strings.Contains(msg, "invalid refresh token")
	}
	return false
}
