// Package token signs and verifies the bearer tokens returned by login.
// Tokens are stateless HS256 JWTs; expiry is the only invalidation
// mechanism, there is no server-side session or revocation store.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/obsidian-cms/obsidian/internal/domain"
)

// Claims carries the subject email alongside the registered claim set.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Service signs and verifies tokens with an immutable process-wide secret.
// Both operations are pure and safe for concurrent use.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret is empty")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token for the subject email with the configured lifetime.
func (s *Service) Issue(email string) (string, error) {
	return s.IssueFor(email, s.ttl)
}

// IssueFor signs a token with an explicit lifetime, overriding the default.
func (s *Service) IssueFor(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the signature and expiry and returns the claim set.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, domain.ErrBadSignature
	case err != nil:
		return nil, domain.ErrMalformedToken
	case !parsed.Valid:
		return nil, domain.ErrMalformedToken
	}

	if claims.Email == "" {
		return nil, domain.ErrMalformedToken
	}

	return claims, nil
}
