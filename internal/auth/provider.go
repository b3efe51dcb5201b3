package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrProviderUnavailable wraps transport failures and unexpected provider
// responses. It is distinct from a definitive rejection.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// ProviderResolver validates a token by asking the identity provider who it
// belongs to.
type ProviderResolver struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewProviderResolver builds a resolver with its own timeout-bound client.
func NewProviderResolver(baseURL, apiKey string, timeout time.Duration) *ProviderResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ProviderResolver{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type providerUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Resolve implements Resolver.
func (p *ProviderResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, ErrUnauthorized
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if p.APIKey != "" {
		req.Header.Set("apikey", p.APIKey)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Identity{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var u providerUser
	if err := json.Unmarshal(body, &u); err != nil {
		return Identity{}, fmt.Errorf("%w: decode: %v", ErrProviderUnavailable, err)
	}
	if u.ID == "" || u.Email == "" {
		return Identity{}, ErrUnauthorized
	}
	return Identity{ID: u.ID, Email: u.Email}, nil
}
