// Package auth resolves a bearer credential into the caller's identity.
//
// A Resolver is the single capability the rest of the service depends on.
// Two strategies implement it: ProviderResolver asks the identity provider
// (GET {AUTH_URL}/auth/v1/user) and ClaimsResolver verifies an HS256 access
// token locally. Chain composes them so the claims path is only consulted
// when the provider round-trip fails.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnauthorized is returned when the credential is missing, malformed,
// expired, or rejected by every strategy.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the resolved caller.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Zero reports whether no identity was resolved.
func (i Identity) Zero() bool { return i.ID == "" }

// Resolver maps a raw bearer token to an Identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// BearerFromHeader extracts the token from an "Authorization: Bearer <t>" value.
func BearerFromHeader(h string) (string, bool) {
	h = strings.TrimSpace(h)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}

// Chain tries Primary and falls back to Fallback when Primary fails for any
// reason. A nil member is skipped.
type Chain struct {
	Primary  Resolver
	Fallback Resolver
}

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, token string) (Identity, error) {
	var firstErr error
	for _, r := range []Resolver{c.Primary, c.Fallback} {
		if r == nil {
			continue
		}
		id, err := r.Resolve(ctx, token)
		if err == nil {
			return id, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil || errors.Is(firstErr, ErrUnauthorized) {
		return Identity{}, ErrUnauthorized
	}
	return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, firstErr)
}

// Resolvers builds the resolvers used by the routes from configuration.
// Creation and history use the provider alone (or verified claims when no
// provider is configured); the status check chains provider and claims.
// Either piece may be absent; a nil Resolver is never returned.
func Resolvers(providerURL, apiKey, jwtSecret string, timeout time.Duration) (create, status Resolver) {
	var primary, fallback Resolver
	if strings.TrimSpace(providerURL) != "" {
		primary = NewProviderResolver(providerURL, apiKey, timeout)
	}
	if c := NewClaimsResolver(jwtSecret, nil); c != nil {
		fallback = c
	}

	status = Chain{Primary: primary, Fallback: fallback}
	switch {
	case primary != nil:
		create = primary
	case fallback != nil:
		create = fallback
	default:
		create = Chain{}
	}
	return create, status
}
