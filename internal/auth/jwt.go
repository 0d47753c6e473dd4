// Package auth holds the credential primitives: bcrypt password hashing,
// HS256 access tokens, the GitHub OAuth provider and the HTTP middleware
// that turns a bearer token into a user id on the request context.
//
// Access tokens are stateless. The payload carries the user id in "sub",
// the issuer and an expiry; the signature is HMAC-SHA256 over the header
// and payload, so validation needs only the secret.
//
// AUTHENTICATION FLOW OVERVIEW:
//
//  1. The client logs in with a password or through GitHub.
//  2. The server signs a token: base64(header).base64(payload).signature
//  3. The client sends it back on every request as "Authorization: Bearer <token>".
//  4. RequireAuth recomputes the signature and reads the user id from "sub".
//
// Nothing is stored server-side. A token stays valid until it expires, which
// is why POST /auth/refresh issues a new one instead of extending the old one.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 24 * time.Hour

type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService rejects secrets shorter than 16 characters. A zero ttl
// falls back to DefaultTokenTTL.
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if issuer == "" {
		return nil, errors.New("auth: JWT issuer must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a token for userID that expires after the configured TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration issues a token with an explicit lifetime. A negative
// duration yields an already expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate checks signature, algorithm, issuer and expiry and returns the
// user id from the subject claim.
//
// ALGORITHM CONFUSION ATTACK:
// A forged token can claim "alg": "none" or switch to an asymmetric algorithm
// and hope the server trusts the header. The keyfunc refuses any method that
// is not HMAC, and WithValidMethods pins it further to HS256, so the header
// never decides how the signature is checked.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
