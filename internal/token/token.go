// Package token issues and verifies the bearer tokens handed out at login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = time.Hour

// Service signs and verifies HS256 tokens with a process-wide secret
// injected at construction. There is no rotation and no revocation list,
// expiry is the only invalidation mechanism.
type Service struct {
	Secret []byte
	TTL    time.Duration
}

func NewService(secret []byte) *Service {
	return &Service{Secret: secret, TTL: DefaultTTL}
}

// Issue mints a token bound to userID, expiring TTL from now.
func (s *Service) Issue(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(s.TTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

// Verify returns the user id bound to raw. It fails on expiry, signature
// mismatch, an unexpected signing method or malformed claims.
func (s *Service) Verify(raw string) (uint, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalid token: %w", err)
	}
	if !t.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("cannot parse claims")
	}

	id, ok := claims["userId"].(float64)
	if !ok {
		return 0, errors.New("token has no userId claim")
	}

	return uint(id), nil
}
