// Package auth issues and validates the bearer tokens spec.md §6 requires
// for every endpoint but /login, grounded in the teacher's
// internal/api/auth.go createJWTToken/validateToken pair (HS256,
// jwt.MapClaims, explicit signing-method assertion on parse).
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Authenticator issues and validates tokens against a single HMAC secret,
// the minimal auth surface SPEC_FULL.md §6 keeps in scope ("no OAuth, no
// password-reset flow, no session table").
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// IssueToken mints an HS256 token carrying user_id and role. Handlers use
// user_id for owner checks; role is placed in the request context, and no
// handler checks it.
func (a *Authenticator) IssueToken(userID int64, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(a.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken parses and verifies the token, asserting the signing
// method matches before trusting claims (the teacher's validateToken does
// the same check to prevent an alg-confusion downgrade).
func (a *Authenticator) ValidateToken(tokenString string) (userID int64, role string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return 0, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", fmt.Errorf("invalid token")
	}

	uidFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("token missing user_id claim")
	}
	roleStr, _ := claims["role"].(string)

	return int64(uidFloat), roleStr, nil
}
