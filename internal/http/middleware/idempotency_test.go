package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct {
	userID, scope, key string
	now                time.Time
}

func idemRouter(t *testing.T, opts IdempotencyOptions, lookup IdempotencyLookup, seen *[]string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(userIDKey, uid)
		}
		c.Next()
	})
	r.Use(IdempotencyValidator(opts, lookup))
	r.POST("/p", func(c *gin.Context) {
		k, _ := GetIdempotencyKey(c)
		*seen = append(*seen, k)
		if IsReplay(c) {
			c.Header(HeaderIdempotencyReplayed, "true")
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestIdempotencyValidator_NoHeader(t *testing.T) {
	called := false
	var seen []string
	r := idemRouter(t, IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (bool, error) {
		called = true
		return true, nil
	}, &seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/p", nil))
	if w.Code != http.StatusOK || called || len(seen) != 1 || seen[0] != "" {
		t.Fatalf("code=%d called=%v seen=%v", w.Code, called, seen)
	}
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	var seen []string
	r := idemRouter(t, IdempotencyOptions{MaxLen: 8}, nil, &seen)

	for _, key := range []string{"has space", "toolong-key", "semi;colon"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/p", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"reason":"bad_idempotency_key"`) {
			t.Fatalf("key %q: code=%d body=%s", key, w.Code, w.Body.String())
		}
	}
	if len(seen) != 0 {
		t.Fatal("handler must not run for bad keys")
	}
}

func TestIdempotencyValidator_ReplayScopedToUser(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var calls []lookupCall
	lookup := func(_ context.Context, uid, scope, key string, now time.Time) (bool, error) {
		calls = append(calls, lookupCall{uid, scope, key, now})
		return uid == "u1" && key == "k-1", nil
	}
	var seen []string
	r := idemRouter(t, IdempotencyOptions{Scope: "create_purchase", Now: func() time.Time { return fixed }}, lookup, &seen)

	send := func(user, key string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/p", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		r.ServeHTTP(w, req)
		return w
	}

	if w := send("u1", "k-1"); w.Header().Get(HeaderIdempotencyReplayed) != "true" {
		t.Fatal("expected replay for u1")
	}
	if w := send("u2", "k-1"); w.Header().Get(HeaderIdempotencyReplayed) != "" {
		t.Fatal("u2 must not replay u1's key")
	}
	send("", "k-1") // anonymous: no lookup

	if len(calls) != 2 {
		t.Fatalf("lookup calls = %d, want 2", len(calls))
	}
	if calls[0].scope != "create_purchase" || !calls[0].now.Equal(fixed) || calls[0].key != "k-1" {
		t.Fatalf("unexpected lookup args: %+v", calls[0])
	}
	if len(seen) != 3 || seen[0] != "k-1" {
		t.Fatalf("handler saw %v", seen)
	}
}

func TestIdempotencyValidator_LookupErrorIsNotReplay(t *testing.T) {
	_ = captureLogger(t)
	var seen []string
	r := idemRouter(t, IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (bool, error) {
		return false, errors.New("db down")
	}, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/p", nil)
	req.Header.Set(HeaderIdempotencyKey, "k")
	req.Header.Set("X-Test-User", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get(HeaderIdempotencyReplayed) != "" {
		t.Fatalf("code=%d headers=%v", w.Code, w.Header())
	}
}

func TestContextAccessors_WrongTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	c.Set(ctxKeyIdemKey, 123)
	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatal("non-string key must read as absent")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatal("non-bool replay flag must read as false")
	}
	c.Set(userIDKey, 42)
	if UserIDFrom(c) != "" {
		t.Fatal("non-string user id must read as empty")
	}
}
