package auth

import (
	"context"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ClaimsResolver reads the identity straight from a signed access token.
// The signature is always verified; tokens without sub, email or a future
// exp are rejected.
type ClaimsResolver struct {
	secret []byte
	now    func() time.Time
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewClaimsResolver returns nil when secret is empty, so a Chain built from
// it simply has no fallback.
func NewClaimsResolver(secret string, now func() time.Time) *ClaimsResolver {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &ClaimsResolver{secret: []byte(secret), now: now}
}

// Resolve implements Resolver.
func (r *ClaimsResolver) Resolve(_ context.Context, token string) (Identity, error) {
	if r == nil || strings.TrimSpace(token) == "" {
		return Identity{}, ErrUnauthorized
	}
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil || parsed == nil || !parsed.Valid {
		return Identity{}, ErrUnauthorized
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Email) == "" {
		return Identity{}, ErrUnauthorized
	}
	return Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// IssueToken signs an HS256 access token for id that expires after ttl. It
// is used by local tooling and tests to mint credentials the ClaimsResolver
// accepts.
func IssueToken(secret string, id Identity, ttl time.Duration, now time.Time) (string, error) {
	claims := accessClaims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
