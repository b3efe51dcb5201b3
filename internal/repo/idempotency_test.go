package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localmarket/tokens-backend/internal/domain"
)

func TestGetIdempotency_BlankScopeOrKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now()
	if rec, err := GetIdempotency(context.Background(), db, "u1", "  ", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank scope, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "u1", "create", "", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestCreateAndGetIdempotency(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "u1", "create", "k1", "p1", 200, time.Hour, now)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || !rec.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "create", "k1", now.Add(time.Minute))
	if err != nil || got.PurchaseID != "p1" || got.Status != 200 {
		t.Fatalf("GetIdempotency = %+v, %v", got, err)
	}

	// Other users never see it.
	if _, err := GetIdempotency(ctx, db, "u2", "create", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}

	if _, err := CreateIdempotency(ctx, db, "u1", "create", "k1", "p2", 200, time.Hour, now); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIdempotency_ExpiredIsInvisibleAndReplaceable(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.Idempotency{})
	past := time.Now().UTC().Add(-2 * time.Hour)

	if _, err := CreateIdempotency(ctx, db, "u1", "create", "k1", "old", 200, time.Hour, past); err != nil {
		t.Fatalf("seed: %v", err)
	}
	now := time.Now().UTC()
	if _, err := GetIdempotency(ctx, db, "u1", "create", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record should be invisible, got %v", err)
	}
	rec, err := CreateIdempotency(ctx, db, "u1", "create", "k1", "new", 200, time.Hour, now)
	if err != nil {
		t.Fatalf("replace expired: %v", err)
	}
	got, err := GetIdempotency(ctx, db, "u1", "create", "k1", now)
	if err != nil || got.ID != rec.ID || got.PurchaseID != "new" {
		t.Fatalf("GetIdempotency after replace = %+v, %v", got, err)
	}
}

func TestCreateIdempotency_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := CreateIdempotency(context.Background(), db, "u1", "s", "k", "p", 200, time.Hour, time.Now()); err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected plain DB error, got %v", err)
	}
}
