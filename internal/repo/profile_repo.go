package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/localmarket/tokens-backend/internal/domain"
)

// CreateProfile inserts a purchaser profile. Used by provisioning and tests;
// balances are never changed through this path after creation.
func CreateProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// FindProfileByEmail returns the most recently created profile for email.
// Duplicate profiles for one email exist in legacy data; the newest wins.
func FindProfileByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at desc").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile fetches a profile by id or returns ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileBalance returns the current token balance of a profile.
func ProfileBalance(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	var row struct{ Tokens int64 }
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Select("tokens").
		Where("id = ?", id).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return row.Tokens, nil
}
