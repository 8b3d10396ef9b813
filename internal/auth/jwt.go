// Package auth maps bearer tokens to actors. Issuing credentials is out of
// scope: tokens are signed elsewhere with the shared HS256 secret, and
// SignToken exists for tools and tests that need to speak to the API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carries the actor: the subject is its id, Role its role name.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	return strings.TrimSpace(parts[1]), nil
}

// ParseActor validates tokenStr and resolves the actor it names.
func ParseActor(tokenStr, secret string) (actor.Actor, error) {
	if secret == "" {
		return actor.Actor{}, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return actor.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, _ := tok.Claims.(*Claims)
	if c == nil || c.Role == "" {
		return actor.Actor{}, fmt.Errorf("%w: missing role", ErrInvalidToken)
	}

	role, err := actor.ParseRole(strings.ToLower(c.Role))
	if err != nil {
		return actor.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if role == actor.Guest {
		return actor.NewGuest(), nil
	}

	id, err := kernel.UUIDFromString(c.Subject)
	if err != nil {
		return actor.Actor{}, fmt.Errorf("%w: subject: %w", ErrInvalidToken, err)
	}
	a, err := actor.New(role, id)
	if err != nil {
		return actor.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return a, nil
}

// SignToken issues an HS256 token for a, valid for ttl from now.
func SignToken(a actor.Actor, secret string, now time.Time, ttl time.Duration) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}

	claims := Claims{
		Role: a.Role().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if !a.IsGuest() {
		claims.Subject = a.ID().String()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
