package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2/jws"
)

// Claims is the payload of a locally issued session token: {email, id, exp}.
type Claims struct {
	Email string `json:"email"`
	ID    string `json:"id"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 session tokens with a fixed secret and lifetime.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner returns a signer for the given secret and token lifetime.
func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the user identity.
func (s *TokenSigner) Issue(email, userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		ID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates signature and expiry and returns the claims.
func (s *TokenSigner) Parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// DecodeExternalSubject reads the "sub" claim of an externally issued identity
// token without verifying its signature.
func DecodeExternalSubject(tokenStr string) (string, error) {
	claims, err := jws.Decode(tokenStr)
	if err != nil {
		return "", fmt.Errorf("decode external token: %w", err)
	}
	if claims.Sub == "" {
		return "", errors.New("external token has no subject")
	}
	return claims.Sub, nil
}
