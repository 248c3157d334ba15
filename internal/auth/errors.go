package auth

import "errors"

// Domain-specific errors for credential handling.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoToken is returned when no credentials are stored under the
	// requested name.
	ErrNoToken = errors.New("auth: no token stored")

	// ErrTokenExpired is returned when the stored access token is past
	// (or within the refresh window of) its expiry.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid is returned when a token cannot be decoded.
	ErrTokenInvalid = errors.New("auth: token invalid")

	// ErrMissingName is returned when a token record has no name.
	ErrMissingName = errors.New("auth: token name required")
)

// IsNoToken reports whether err indicates a missing credential.
func IsNoToken(err error) bool {
	return errors.Is(err, ErrNoToken)
}
