package contracts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var tokenParser = jwt.NewParser(jwt.WithJSONNumber())

// ReadTokenClaims decodes the claims of an access token without verifying its
// signature. Verification belongs to the API server; the console only reads
// the claims to show who is signed in and when the token expires.
func ReadTokenClaims(token string) (TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("reading token claims: %w", err)
	}
	return TokenClaimsSchema.Parse(map[string]any(claims))
}

// TokenExpiry returns the exp claim of token, if it has a readable one.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
