package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAToken is returned when the authorization material is not a JWT and
// therefore carries no readable expiry.
var ErrNotAToken = errors.New("authorization value is not a token")

// SessionExpiry extracts the expiry claim from a bearer session token.  The
// token is decoded without signature verification: we never trust these
// tokens, we only read when the upstream site will stop accepting them.
// Returns (nil, nil) for tokens without an exp claim.
func SessionExpiry(authorization string) (*time.Time, error) {
	raw := strings.TrimPrefix(authorization, "Bearer ")
	if strings.Count(raw, ".") != 2 {
		return nil, ErrNotAToken
	}
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, nil
	}
	t := exp.Time
	return &t, nil
}

// SessionExpired reports whether the token has a readable expiry in the
// past.  Unreadable or expiry-less tokens count as not expired; validity is
// then governed by the upstream-reported flag alone.
func SessionExpired(authorization string, now time.Time) bool {
	exp, err := SessionExpiry(authorization)
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
