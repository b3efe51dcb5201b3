package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/localmarket/tokens-backend/internal/domain"
	"github.com/localmarket/tokens-backend/internal/gateway"
	"github.com/localmarket/tokens-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%s.db", uuid.NewString()))
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

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func addProfile(t *testing.T, db *gorm.DB, id, email string, role domain.Role, tokens int64) {
	t.Helper()
	p := &domain.Profile{ID: id, Email: email, Role: role, Tokens: tokens, CreatedAt: time.Now().UTC()}
	if err := repo.CreateProfile(context.Background(), db, p); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func balance(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	b, err := repo.ProfileBalance(context.Background(), db, id)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func mustPurchase(t *testing.T, db *gorm.DB, id string) *domain.Purchase {
	t.Helper()
	p, err := repo.GetPurchase(context.Background(), db, id)
	if err != nil {
		t.Fatalf("get purchase %s: %v", id, err)
	}
	return p
}

// fakeGateway is an in-memory gateway.Client.
type fakeGateway struct {
	mu sync.Mutex

	createErr error
	expiresAt *time.Time
	noImage   bool

	statuses  map[string]string
	statusErr error

	creates     []gateway.ChargeRequest
	statusCalls int
	seq         int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: map[string]string{}}
}

func (f *fakeGateway) CreateCharge(_ context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	id := fmt.Sprintf("mp-%d", f.seq)
	f.statuses[id] = "pending"
	c := &gateway.Charge{
		ID:        id,
		Status:    "pending",
		QRCode:    "00020126pix" + id,
		TicketURL: "https://mp.example/ticket/" + id,
		ExpiresAt: f.expiresAt,
	}
	if !f.noImage {
		c.QRCodeBase64 = "iVBORw0KGgo="
	}
	return c, nil
}

func (f *fakeGateway) GetStatus(_ context.Context, id string) (*gateway.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	st, ok := f.statuses[id]
	if !ok {
		return nil, &gateway.APIError{HTTPStatus: 404, Status: "not_found"}
	}
	return &gateway.PaymentStatus{ID: id, Status: st, StatusDetail: st + "_detail"}, nil
}

func (f *fakeGateway) set(id, status string) {
	f.mu.Lock()
	f.statuses[id] = status
	f.mu.Unlock()
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}
