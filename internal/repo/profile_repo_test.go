package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localmarket/tokens-backend/internal/domain"
)

func TestFindProfileByEmail_PicksNewest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.Profile{})
	now := time.Now().UTC()
	seedProfile(t, db, "old", "dup@example.com", domain.RoleClient, 0, now.Add(-48*time.Hour))
	seedProfile(t, db, "new", "dup@example.com", domain.RoleProfessional, 5, now)
	seedProfile(t, db, "other", "x@example.com", domain.RoleEstablishment, 0, now)

	p, err := FindProfileByEmail(ctx, db, "dup@example.com")
	if err != nil {
		t.Fatalf("FindProfileByEmail: %v", err)
	}
	if p.ID != "new" || p.Role != domain.RoleProfessional {
		t.Fatalf("expected newest profile, got %+v", p)
	}

	if _, err := FindProfileByEmail(ctx, db, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProfile_AndBalance(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.Profile{})
	seedProfile(t, db, "p1", "a@example.com", domain.RoleProfessional, 42, time.Now())

	p, err := GetProfile(ctx, db, "p1")
	if err != nil || p.Tokens != 42 {
		t.Fatalf("GetProfile = %+v, %v", p, err)
	}
	bal, err := ProfileBalance(ctx, db, "p1")
	if err != nil || bal != 42 {
		t.Fatalf("ProfileBalance = %d, %v", bal, err)
	}
	if _, err := ProfileBalance(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetProfile(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
