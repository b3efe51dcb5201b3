// Package services – PurchaseService
//
// PurchaseService opens a token purchase: it validates the caller and the
// plan, freezes the plan terms into a pending purchase row, asks the gateway
// for a Pix charge keyed by the purchase id, and stores the charge payload on
// the row. A repeated Idempotency-Key returns the purchase created the first
// time instead of opening another charge.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/localmarket/tokens-backend/internal/auth"
	"github.com/localmarket/tokens-backend/internal/domain"
	"github.com/localmarket/tokens-backend/internal/gateway"
	"github.com/localmarket/tokens-backend/internal/plans"
	"github.com/localmarket/tokens-backend/internal/repo"
	"github.com/localmarket/tokens-backend/internal/sysutil"
	"github.com/localmarket/tokens-backend/internal/utils"
)

// IdempotencyScopeCreate namespaces idempotency keys of purchase creation.
const IdempotencyScopeCreate = "create_purchase"

// PurchaseService implements purchase initiation and the caller's history.
type PurchaseService struct {
	DB      *gorm.DB
	Gateway gateway.Client

	// NotificationURL is forwarded to the gateway when set.
	NotificationURL string
	// TestMode reports a sandbox gateway token; creation is refused unless
	// AllowTestMode is set.
	TestMode      bool
	AllowTestMode bool

	IdempotencyTTL time.Duration

	Now   func() time.Time
	NewID func() string
}

// CreateResult is a freshly created (or replayed) pending purchase.
type CreateResult struct {
	Purchase *domain.Purchase
	Plan     plans.Plan
	Replayed bool
}

func (s *PurchaseService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *PurchaseService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Create opens a purchase of planID for the caller and returns it together
// with its Pix payload. idemKey may be empty.
func (s *PurchaseService) Create(ctx context.Context, caller auth.Identity, planID, idemKey string) (_ *CreateResult, err error) {
	tr := otel.Tracer("services/PurchaseService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", caller.ID),
			attribute.String("plan.id", planID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if s.TestMode && !s.AllowTestMode {
		return nil, ErrGatewayTestMode
	}
	if caller.Zero() || strings.TrimSpace(caller.Email) == "" {
		return nil, ErrUnauthorized
	}
	plan, ok := plans.Lookup(planID)
	if !ok {
		return nil, ErrInvalidPlan
	}
	lg := log.Ctx(ctx).With().Str("user_id", caller.ID).Str("plan_id", plan.ID).Logger()

	if idemKey != "" {
		if res, err := s.replay(ctx, caller.ID, idemKey, plan); err != nil || res != nil {
			return res, err
		}
	}

	profile, err := repo.FindProfileByEmail(ctx, s.DB, caller.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: load profile: %v", ErrPersistence, err)
	}
	if !profile.Role.CanBuyTokens() {
		return nil, ErrForbidden
	}

	now := s.now()
	p := &domain.Purchase{
		ID:           s.newID(),
		UserID:       caller.ID,
		ProfileID:    profile.ID,
		UserEmail:    caller.Email,
		Role:         profile.Role,
		PlanID:       plan.ID,
		PlanName:     plan.Name,
		TokensAmount: plan.Tokens,
		Amount:       plan.Price,
		RsPerCoin:    plan.Rate,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreatePurchase(ctx, s.DB, p); err != nil || p.ID == "" {
		purchaseFailures.WithLabelValues("insert").Inc()
		return nil, fmt.Errorf("%w: create purchase: %v", ErrPersistence, err)
	}
	lg = lg.With().Str("purchase_id", p.ID).Logger()
	span.SetAttributes(attribute.String("purchase.id", p.ID))
	lg.Info().Msg("purchase created")

	charge, err := s.Gateway.CreateCharge(ctx, gateway.ChargeRequest{
		Amount:            p.Amount,
		Description:       fmt.Sprintf("Compra de %d tokens - Plano %s", p.TokensAmount, p.PlanName),
		PayerEmail:        caller.Email,
		ExternalReference: p.ID,
		IdempotencyKey:    p.ID,
		NotificationURL:   s.NotificationURL,
		Metadata: map[string]any{
			"purchase_id": p.ID,
			"user_id":     caller.ID,
			"plan_id":     p.PlanID,
			"tokens":      p.TokensAmount,
		},
	})
	if err != nil {
		purchaseFailures.WithLabelValues("gateway").Inc()
		mpStatus, raw := failureAudit(err)
		if _, merr := repo.MarkFailed(ctx, s.DB, p.ID, mpStatus, raw, s.now()); merr != nil {
			lg.Error().Err(merr).Msg("could not mark purchase failed")
		}
		lg.Warn().Err(err).Msg("gateway rejected charge creation")
		return nil, fmt.Errorf("%w: %v", ErrGatewayError, err)
	}

	link := repo.ChargeLink{
		GatewayID:    charge.ID,
		Status:       sysutil.FirstNonEmpty(charge.Status, string(domain.StatusPending)),
		StatusDetail: charge.StatusDetail,
		QRCode:       charge.QRCode,
		QRCodeBase64: charge.QRCodeBase64,
		TicketURL:    charge.TicketURL,
		ExpiresAt:    charge.ExpiresAt,
	}
	if err := repo.AttachCharge(ctx, s.DB, p.ID, link, s.now()); err != nil {
		// The charge exists at the gateway but the row lacks its payload.
		purchaseFailures.WithLabelValues("attach").Inc()
		lg.Error().Err(err).Str("gateway_id", charge.ID).Msg("charge created but pix data not persisted")
		return nil, fmt.Errorf("%w: persist pix data: %v", ErrPersistence, err)
	}
	gid := charge.ID
	p.MPPaymentID = &gid
	p.MPStatus = link.Status
	p.MPStatusDetail = link.StatusDetail
	p.PixQRCode = link.QRCode
	p.PixQRCodeBase64 = link.QRCodeBase64
	p.PixTicketURL = link.TicketURL
	p.PixExpiresAt = link.ExpiresAt

	if idemKey != "" {
		if _, err := repo.CreateIdempotency(ctx, s.DB, caller.ID, IdempotencyScopeCreate, idemKey, p.ID, http.StatusOK, s.ttl(), s.now()); err != nil {
			lg.Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	purchasesCreated.WithLabelValues(plan.ID).Inc()
	lg.Info().Str("gateway_id", charge.ID).Msg("pix charge attached")
	return &CreateResult{Purchase: p, Plan: plan, Replayed: false}, nil
}

func (s *PurchaseService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

// replay returns the purchase stored for (userID, key), or nil when there is none.
func (s *PurchaseService) replay(ctx context.Context, userID, key string, plan plans.Plan) (*CreateResult, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, IdempotencyScopeCreate, key, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: idempotency lookup: %v", ErrPersistence, err)
	}
	p, err := repo.GetPurchase(ctx, s.DB, rec.PurchaseID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load replayed purchase: %v", ErrPersistence, err)
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	if stored, ok := plans.Lookup(p.PlanID); ok {
		plan = stored
	}
	return &CreateResult{Purchase: p, Plan: plan, Replayed: true}, nil
}

// ListPage returns one page of the caller's purchases (newest first) and the
// total count.
func (s *PurchaseService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Purchase, int64, error) {
	tr := otel.Tracer("services/PurchaseService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if userID == "" {
		return nil, 0, ErrUnauthorized
	}
	pg := utils.Page{Number: page, Size: pageSize}.Clamp(20, 100)
	total, err := repo.CountPurchases(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	items, err := repo.ListPurchasesPage(ctx, s.DB, userID, pg.Offset(), pg.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return items, total, nil
}

// Stats returns the caller's purchase count and latest update time; the
// HTTP layer derives the history ETag from it.
func (s *PurchaseService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	count, maxTS, err := repo.PurchasesStats(ctx, s.DB, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return count, maxTS, nil
}

// failureAudit extracts what is stored on a failed purchase: the gateway
// status (or "failed") and the raw response.
func failureAudit(err error) (string, string) {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		st := sysutil.FirstNonEmpty(apiErr.Status, string(domain.StatusFailed))
		if len(apiErr.Raw) > 0 {
			return st, string(apiErr.Raw)
		}
		return st, fmt.Sprintf(`{"http_status":%d}`, apiErr.HTTPStatus)
	}
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(domain.StatusFailed), string(raw)
}
