package handlers

import (
	"context"
	"time"

	"github.com/localmarket/tokens-backend/internal/auth"
	"github.com/localmarket/tokens-backend/internal/domain"
	"github.com/localmarket/tokens-backend/internal/services"
)

// PurchaseService opens purchases and lists a caller's history.
type PurchaseService interface {
	Create(ctx context.Context, caller auth.Identity, planID, idemKey string) (*services.CreateResult, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Purchase, int64, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// ReconcileService synchronizes purchases with the payment gateway.
type ReconcileService interface {
	Check(ctx context.Context, caller auth.Identity, purchaseID string) (*services.StatusResult, error)
	ReconcileByGatewayID(ctx context.Context, gatewayID string) (*services.StatusResult, error)
}

// Handlers groups the purchase, plan and webhook endpoints.
type Handlers struct {
	purchases PurchaseService
	reconcile ReconcileService

	// webhookSecret, when set, must match X-Webhook-Secret on notifications.
	webhookSecret string
}

// New binds the handlers to their services.
func New(purchases PurchaseService, reconcile ReconcileService, webhookSecret string) *Handlers {
	return &Handlers{purchases: purchases, reconcile: reconcile, webhookSecret: webhookSecret}
}
