package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshOffset is how long before the recorded expiry a token is already
// treated as stale, leaving the out-of-band refresh process headroom.
const RefreshOffset = 60 * time.Second

// DefaultTokenName is the record name used when callers do not scope
// credentials to an account.
const DefaultTokenName = "default"

// Token is one stored credential set for the vendor REST API. Acquisition
// and refresh happen outside this engine; the store only persists what the
// polling channel needs between restarts.
type Token struct {
	Name         string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// ShouldRefresh reports whether the token is within RefreshOffset of its
// expiry (or past it). Tokens without a recorded expiry never report stale.
func (t Token) ShouldRefresh(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt.Add(-RefreshOffset))
}

// TokenExpiry extracts the expiry claim from a JWT access token without
// verifying its signature. The engine never holds the vendor's signing
// key; the claim is used only to decide when a stored token is stale,
// never to authenticate anything.
//
// Returns:
//   - time.Time: The exp claim
//   - error: ErrTokenInvalid when the token is not a decodable JWT or has no expiry
func TokenExpiry(tokenString string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: no expiry claim", ErrTokenInvalid)
	}
	return claims.ExpiresAt.Time, nil
}
