package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSealedToken is returned by Unseal for every failure mode:
// signature mismatch, malformed structure, or unexpected claim shape.
// Callers must treat it exactly like "not found".
var ErrInvalidSealedToken = errors.New("invalid sealed token")

// TokenSealer wraps a raw credential token in a tamper-evident signed
// envelope (an HS256 JWT) so it can travel in a URL or cookie. The seal
// authenticates the payload and binds the issue time; it does not encrypt,
// the raw token is already an opaque random secret.
type TokenSealer struct {
	secret []byte
}

// NewTokenSealer creates a sealer keyed by the server secret
func NewTokenSealer(secret string) *TokenSealer {
	return &TokenSealer{secret: []byte(secret)}
}

// Seal wraps a raw token and its issue time into an opaque signed string
func (s *TokenSealer) Seal(raw string, issuedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session": raw,
		"iat":     issuedAt.Unix(),
	})

	sealed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to seal token: %w", err)
	}

	return sealed, nil
}

// Unseal verifies a sealed token and returns the raw token and issue time.
// It fails closed: any parse or signature failure yields ErrInvalidSealedToken.
func (s *TokenSealer) Unseal(sealed string) (string, time.Time, error) {
	token, err := jwt.Parse(sealed, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil || !token.Valid {
		return "", time.Time{}, ErrInvalidSealedToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, ErrInvalidSealedToken
	}

	raw, ok := claims["session"].(string)
	if !ok || raw == "" {
		return "", time.Time{}, ErrInvalidSealedToken
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return "", time.Time{}, ErrInvalidSealedToken
	}

	return raw, time.Unix(int64(iat), 0), nil
}
