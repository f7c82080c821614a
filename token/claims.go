package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims is the subset of access token claims the client reads. Tokens are
// never verified here; the API is the only authority on their validity.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // Zero when the token carries no exp claim
}

// Inspect decodes a JWT access token without verifying its signature.
// Opaque (non-JWT) tokens return ok == false.
func Inspect(accessToken string) (Claims, bool) {
	if accessToken == "" {
		return Claims{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return Claims{}, false
	}

	var c Claims
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		c.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, true
}

// Expiry returns when accessToken stops being usable: the exp claim when the
// token is a JWT carrying one, otherwise now + fallback.
func Expiry(accessToken string, fallback time.Duration) time.Time {
	if c, ok := Inspect(accessToken); ok && !c.ExpiresAt.IsZero() {
		return c.ExpiresAt
	}
	return NowTimeFunc().Add(fallback)
}

// ExpiryIn converts an expires_in hint (seconds) to an absolute time, falling
// back to the token's own claims when the hint is missing.
func ExpiryIn(expiresIn int, accessToken string, fallback time.Duration) time.Time {
	if expiresIn > 0 {
		return NowTimeFunc().Add(time.Duration(expiresIn) * time.Second)
	}
	return Expiry(accessToken, fallback)
}

// Expired reports whether expiry has passed, treating tokens that expire
// within leeway as already expired.
func Expired(expiry time.Time, leeway time.Duration) bool {
	if expiry.IsZero() {
		return false
	}
	return !NowTimeFunc().Add(leeway).Before(expiry)
}
