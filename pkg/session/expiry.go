package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var errNoExpiry = errors.New("token has no exp claim")

// tokenExpiry reads the exp claim of a JWT access token. The signature is
// not verified; the identity service remains the authority on validity.
func tokenExpiry(token string, algs []jose.SignatureAlgorithm) (time.Time, error) {
	parsed, err := jwt.ParseSigned(token, algs)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing access token: %w", err)
	}

	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return time.Time{}, fmt.Errorf("getting JWT claims: %w", err)
	}

	if claims.Expiry == nil {
		return time.Time{}, errNoExpiry
	}

	return claims.Expiry.Time(), nil
}
