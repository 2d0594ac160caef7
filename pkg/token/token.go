// Package token issues and verifies the signed session tokens that bind a
// request to a (vault owner, credential) pair. Tokens are bearer credentials
// carried in an HTTP-only cookie; they assert authenticity of the claim, not
// that the credential is still trusted.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	OwnerID      string `json:"oid"`
	CredentialID string `json:"cid"`
	// FirstIssuedAt survives sliding renewals so that a session's total
	// lifetime stays bounded no matter how often it is re-issued.
	FirstIssuedAt int64 `json:"fia"`
	jwt.RegisteredClaims
}

// Generate signs a token for the given owner/credential pair. firstIssued is
// carried across renewals; pass time.Now() for a fresh login.
func Generate(ownerID, credentialID string, firstIssued time.Time, ttl time.Duration, key []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		OwnerID:       ownerID,
		CredentialID:  credentialID,
		FirstIssuedAt: firstIssued.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// Validate parses and verifies a token, returning its claims. Any failure
// (bad signature, malformed, expired) is reported as a single opaque error.
func Validate(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.OwnerID == "" || claims.CredentialID == "" {
		return nil, errors.New("token missing subject claims")
	}

	return claims, nil
}
