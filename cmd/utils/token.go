package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenClaims is what the client can read out of its own access token.
// The signature is the server's business; the client only inspects claims
// to know who it is and when the token runs out.
type TokenClaims struct {
	UserID    uint
	ExpiresAt time.Time
}

// InspectToken parses the JWT without verifying the signature and returns
// the subject user ID and expiry.
func InspectToken(tokenString string) (*TokenClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, errors.New("invalid user ID in token")
	}

	tc := &TokenClaims{UserID: uint(userID)}
	if claims.ExpiresAt != nil {
		tc.ExpiresAt = claims.ExpiresAt.Time
	}
	return tc, nil
}

// TokenExpired reports whether the token is unusable at the given time.
// A token without an exp claim never expires client-side.
func (c *TokenClaims) TokenExpired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}
