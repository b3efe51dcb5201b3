package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (Purchase{}).TableName() != "token_purchases" {
		t.Fatalf("Purchase.TableName() = %q", (Purchase{}).TableName())
	}
	if (Profile{}).TableName() != "usuarios" {
		t.Fatalf("Profile.TableName() = %q", (Profile{}).TableName())
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q", (Idempotency{}).TableName())
	}
}

func TestStatusTerminal(t *testing.T) {
	cases := map[PurchaseStatus]bool{
		StatusPending:   false,
		StatusApproved:  true,
		StatusCancelled: true,
		StatusExpired:   true,
		StatusFailed:    true,
		"weird":         false,
	}
	for s, want := range cases {
		if got := s.Terminal(); got != want {
			t.Fatalf("%q.Terminal() = %v; want %v", s, got, want)
		}
	}
}

func TestRoleCanBuyTokens(t *testing.T) {
	if !RoleProfessional.CanBuyTokens() || !RoleEstablishment.CanBuyTokens() {
		t.Fatalf("professional and establishment must be eligible")
	}
	for _, r := range []Role{RoleClient, "", "admin", "Profissional"} {
		if r.CanBuyTokens() {
			t.Fatalf("role %q must not be eligible", r)
		}
	}
}

func TestPurchase_GatewayID(t *testing.T) {
	var p Purchase
	if p.GatewayID() != "" {
		t.Fatalf("nil payment id should yield empty string")
	}
	id := "123"
	p.MPPaymentID = &id
	if p.GatewayID() != "123" {
		t.Fatalf("GatewayID() = %q", p.GatewayID())
	}
}

func TestMigrations_DefaultsAndUniqueGatewayID(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Purchase{}, &Profile{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Purchase{}, "idx_purchases_user") {
		t.Fatalf("expected index idx_purchases_user")
	}
	if !m.HasColumn(&Purchase{}, "usuario_id") || !m.HasColumn(&Purchase{}, "mp_payment_id") {
		t.Fatalf("expected usuario_id and mp_payment_id columns")
	}

	now := time.Now().UTC()
	mk := func(id string) *Purchase {
		return &Purchase{
			ID: id, UserID: "u1", ProfileID: "p1", UserEmail: "a@b.c", Role: RoleProfessional,
			PlanID: "vip", PlanName: "VIP", TokensAmount: 150, Amount: 100, RsPerCoin: 0.67,
			Status: StatusPending, CreatedAt: now, UpdatedAt: now,
		}
	}

	// Two unlinked purchases may coexist (NULL gateway ids).
	if err := db.Create(mk("a")).Error; err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := db.Create(mk("b")).Error; err != nil {
		t.Fatalf("insert b: %v", err)
	}

	var got Purchase
	if err := db.First(&got, "id = ?", "a").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.TokensCredited || got.Status != StatusPending || got.TokensAmount != 150 {
		t.Fatalf("unexpected row: %+v", got)
	}

	gw := "mp-1"
	if err := db.Model(&Purchase{}).Where("id = ?", "a").Update("mp_payment_id", gw).Error; err != nil {
		t.Fatalf("link a: %v", err)
	}
	if err := db.Model(&Purchase{}).Where("id = ?", "b").Update("mp_payment_id", gw).Error; err == nil {
		t.Fatalf("expected unique violation on mp_payment_id")
	}
}
