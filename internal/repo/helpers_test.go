package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/localmarket/tokens-backend/internal/domain"
)

// newTestDB opens a file-backed SQLite database under t.TempDir and migrates
// the given models. A single connection serializes concurrent writers.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_%s.db", uuid.NewString()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, id, email string, role domain.Role, tokens int64, created time.Time) *domain.Profile {
	t.Helper()
	p := &domain.Profile{ID: id, Email: email, Role: role, Tokens: tokens, CreatedAt: created}
	if err := CreateProfile(context.Background(), db, p); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return p
}

func seedPurchase(t *testing.T, db *gorm.DB, userID, profileID string, tokens int64) *domain.Purchase {
	t.Helper()
	p := &domain.Purchase{
		UserID: userID, ProfileID: profileID, UserEmail: "pro@example.com", Role: domain.RoleProfessional,
		PlanID: "vip", PlanName: "VIP", TokensAmount: tokens, Amount: 100, RsPerCoin: 0.67,
	}
	if err := CreatePurchase(context.Background(), db, p); err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	return p
}
