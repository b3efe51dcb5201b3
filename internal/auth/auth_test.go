package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newProvider(t *testing.T, handler http.HandlerFunc) *ProviderResolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProviderResolver(srv.URL+"/", "anon-key", time.Second)
}

func TestBearerFromHeader(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":     "abc",
		"bearer   abc  ": "abc",
		"BEARER x.y.z":   "x.y.z",
	}
	for in, want := range cases {
		got, ok := BearerFromHeader(in)
		if !ok || got != want {
			t.Fatalf("BearerFromHeader(%q) = %q, %v", in, got, ok)
		}
	}
	for _, in := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		if _, ok := BearerFromHeader(in); ok {
			t.Fatalf("BearerFromHeader(%q) should fail", in)
		}
	}
}

func TestProviderResolver_Success(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("apikey") != "anon-key" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","email":"pro@example.com","role":"authenticated"}`))
	})
	id, err := p.Resolve(context.Background(), "tok")
	if err != nil || id.ID != "u1" || id.Email != "pro@example.com" {
		t.Fatalf("Resolve = %+v, %v", id, err)
	}
}

func TestProviderResolver_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rejected", http.StatusUnauthorized, `{"msg":"invalid JWT"}`, ErrUnauthorized},
		{"server error", http.StatusBadGateway, ``, ErrProviderUnavailable},
		{"bad json", http.StatusOK, `not-json`, ErrProviderUnavailable},
		{"missing email", http.StatusOK, `{"id":"u1"}`, ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			if _, err := p.Resolve(context.Background(), "tok"); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v; want %v", err, tc.want)
			}
		})
	}

	p := NewProviderResolver("http://127.0.0.1:1", "", 200*time.Millisecond)
	if _, err := p.Resolve(context.Background(), "tok"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("transport failure should be ErrProviderUnavailable, got %v", err)
	}
	if _, err := p.Resolve(context.Background(), " "); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("blank token should be ErrUnauthorized, got %v", err)
	}
}

func TestClaimsResolver(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewClaimsResolver(testSecret, func() time.Time { return now })

	tok, err := IssueToken(testSecret, Identity{ID: "u1", Email: "pro@example.com"}, time.Hour, now)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	id, err := r.Resolve(context.Background(), tok)
	if err != nil || id.ID != "u1" || id.Email != "pro@example.com" {
		t.Fatalf("Resolve = %+v, %v", id, err)
	}

	expired, _ := IssueToken(testSecret, Identity{ID: "u1", Email: "pro@example.com"}, -time.Minute, now)
	forged, _ := IssueToken("other-secret", Identity{ID: "u1", Email: "pro@example.com"}, time.Hour, now)
	noEmail, _ := IssueToken(testSecret, Identity{ID: "u1"}, time.Hour, now)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "email": "e"}).SignedString([]byte(testSecret))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "email": "e", "exp": now.Add(time.Hour).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{
		"expired": expired, "forged": forged, "no email": noEmail, "no exp": noExp, "alg none": none, "garbage": "a.b.c",
	} {
		if _, err := r.Resolve(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestNewClaimsResolver_EmptySecretDisables(t *testing.T) {
	r := NewClaimsResolver("  ", nil)
	if r != nil {
		t.Fatalf("expected nil resolver for empty secret")
	}
	if _, err := r.Resolve(context.Background(), "x"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("nil resolver must reject, got %v", err)
	}
}

type stubResolver struct {
	id    Identity
	err   error
	calls int
}

func (s *stubResolver) Resolve(context.Context, string) (Identity, error) {
	s.calls++
	return s.id, s.err
}

func TestChain(t *testing.T) {
	ok := &stubResolver{id: Identity{ID: "u1", Email: "e"}}
	down := &stubResolver{err: ErrProviderUnavailable}
	deny := &stubResolver{err: ErrUnauthorized}

	// Primary wins without touching the fallback.
	fb := &stubResolver{id: Identity{ID: "other"}}
	if id, err := (Chain{Primary: ok, Fallback: fb}).Resolve(context.Background(), "t"); err != nil || id.ID != "u1" || fb.calls != 0 {
		t.Fatalf("primary path: id=%+v err=%v fallback calls=%d", id, err, fb.calls)
	}

	// Provider down: fallback answers.
	if id, err := (Chain{Primary: down, Fallback: ok}).Resolve(context.Background(), "t"); err != nil || id.ID != "u1" {
		t.Fatalf("fallback path: id=%+v err=%v", id, err)
	}

	// Both fail: always ErrUnauthorized.
	if _, err := (Chain{Primary: down, Fallback: deny}).Resolve(context.Background(), "t"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := (Chain{Primary: down}).Resolve(context.Background(), "t"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without fallback, got %v", err)
	}
	if _, err := (Chain{}).Resolve(context.Background(), "t"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty chain must reject, got %v", err)
	}

	// Typed-nil fallback from NewClaimsResolver("") is safe.
	if _, err := (Chain{Primary: down, Fallback: NewClaimsResolver("", nil)}).Resolve(context.Background(), "t"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("typed-nil fallback must reject, got %v", err)
	}
}

func TestResolvers(t *testing.T) {
	id := Identity{ID: "u1", Email: "u1@example.com"}
	tok, err := IssueToken(testSecret, id, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// claims only
	create, status := Resolvers("", "", testSecret, time.Second)
	for name, r := range map[string]Resolver{"create": create, "status": status} {
		got, err := r.Resolve(context.Background(), tok)
		if err != nil || got != id {
			t.Fatalf("%s: %+v %v", name, got, err)
		}
	}

	// provider down: creation fails, the status check falls back to claims
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)
	create, status = Resolvers(down.URL, "anon", testSecret, time.Second)
	if _, err := create.Resolve(context.Background(), tok); err == nil {
		t.Fatal("creation must not use the claims fallback when a provider is configured")
	}
	if got, err := status.Resolve(context.Background(), tok); err != nil || got != id {
		t.Fatalf("status fallback: %+v %v", got, err)
	}

	// nothing configured
	create, status = Resolvers("", "", "", time.Second)
	if _, err := create.Resolve(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("create: %v", err)
	}
	if _, err := status.Resolve(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("status: %v", err)
	}
}
