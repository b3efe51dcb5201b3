// Package services – ReconcileService
//
// ReconcileService synchronizes one purchase with the gateway's live status
// and credits the purchaser exactly once on approval. Every write is a
// conditional update guarded by the expected current status, and the credit
// is a single transaction gated on tokens_credited=false, so concurrent
// callers (several browser tabs, the webhook) never double-credit.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/localmarket/tokens-backend/internal/auth"
	"github.com/localmarket/tokens-backend/internal/domain"
	"github.com/localmarket/tokens-backend/internal/gateway"
	"github.com/localmarket/tokens-backend/internal/repo"
)

// ReconcileService implements the purchase status check.
type ReconcileService struct {
	DB      *gorm.DB
	Gateway gateway.Client
	Now     func() time.Time
}

// StatusResult is the outcome reported to the caller. NewBalance and
// ApprovedAt are only set for approved purchases.
type StatusResult struct {
	Status     domain.PurchaseStatus
	PurchaseID string
	NewBalance *int64
	ApprovedAt *time.Time
}

func (s *ReconcileService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Check reconciles purchaseID on behalf of caller, who must own it.
func (s *ReconcileService) Check(ctx context.Context, caller auth.Identity, purchaseID string) (_ *StatusResult, err error) {
	tr := otel.Tracer("services/ReconcileService")
	ctx, span := tr.Start(ctx, "Check",
		trace.WithAttributes(
			attribute.String("user.id", caller.ID),
			attribute.String("purchase.id", purchaseID),
		),
	)
	defer func() { endSpan(span, err) }()

	if caller.Zero() {
		return nil, ErrUnauthorized
	}
	purchaseID = strings.TrimSpace(purchaseID)
	if purchaseID == "" {
		return nil, ErrMissingPurchaseID
	}
	p, err := s.load(ctx, func() (*domain.Purchase, error) { return repo.GetPurchase(ctx, s.DB, purchaseID) })
	if err != nil {
		return nil, err
	}
	if p.UserID != caller.ID {
		return nil, ErrForbidden
	}
	return s.reconcile(ctx, p)
}

// ReconcileByGatewayID reconciles the purchase linked to a gateway payment id
// as the system actor (no ownership check). Used by gateway notifications.
func (s *ReconcileService) ReconcileByGatewayID(ctx context.Context, gatewayID string) (_ *StatusResult, err error) {
	tr := otel.Tracer("services/ReconcileService")
	ctx, span := tr.Start(ctx, "ReconcileByGatewayID",
		trace.WithAttributes(attribute.String("gateway.id", gatewayID)),
	)
	defer func() { endSpan(span, err) }()

	gatewayID = strings.TrimSpace(gatewayID)
	if gatewayID == "" {
		return nil, ErrMissingGatewayReference
	}
	p, err := s.load(ctx, func() (*domain.Purchase, error) { return repo.GetPurchaseByGatewayID(ctx, s.DB, gatewayID) })
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, p)
}

func (s *ReconcileService) load(_ context.Context, get func() (*domain.Purchase, error)) (*domain.Purchase, error) {
	p, err := get()
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load purchase: %v", ErrPersistence, err)
	}
	return p, nil
}

func (s *ReconcileService) reconcile(ctx context.Context, p *domain.Purchase) (*StatusResult, error) {
	lg := log.Ctx(ctx).With().Str("purchase_id", p.ID).Str("gateway_id", p.GatewayID()).Logger()

	// Stored terminal states never contact the gateway again.
	if p.Status.Terminal() {
		return s.fromStored(ctx, &lg, p)
	}

	gid := p.GatewayID()
	if gid == "" {
		return nil, ErrMissingGatewayReference
	}
	live, err := s.Gateway.GetStatus(ctx, gid)
	if err != nil {
		lg.Warn().Err(err).Msg("gateway status unavailable")
		return nil, fmt.Errorf("%w: %v", ErrGatewayError, err)
	}

	now := s.now()
	next := applyExpiry(NormalizeStatus(live.Status), p.PixExpiresAt, now)
	mpStatus := live.Status
	if mpStatus == "" {
		mpStatus = string(domain.StatusPending)
	}
	lg.Debug().Str("gateway_status", live.Status).Str("status", string(next)).Msg("gateway status fetched")

	var changed bool
	switch next {
	case domain.StatusApproved:
		changed, err = repo.MarkApproved(ctx, s.DB, p.ID, mpStatus, live.StatusDetail, now)
	case domain.StatusCancelled, domain.StatusExpired:
		changed, err = repo.CloseTerminal(ctx, s.DB, p.ID, next, mpStatus, live.StatusDetail, now)
	default:
		changed, err = repo.RefreshPending(ctx, s.DB, p.ID, mpStatus, live.StatusDetail, now)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update status: %v", ErrPersistence, err)
	}
	if changed {
		lg.Info().Str("status", string(next)).Msg("purchase status updated")
	}

	// Re-read: a concurrent caller may have moved the row first.
	fresh, err := repo.GetPurchase(ctx, s.DB, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload purchase: %v", ErrPersistence, err)
	}
	return s.fromStored(ctx, &lg, fresh)
}

// fromStored reports a purchase's persisted state, applying a pending credit
// to approved purchases first.
func (s *ReconcileService) fromStored(ctx context.Context, lg *zerolog.Logger, p *domain.Purchase) (*StatusResult, error) {
	res := &StatusResult{Status: p.Status, PurchaseID: p.ID}

	switch p.Status {
	case domain.StatusApproved:
		if !p.TokensCredited {
			credited, err := repo.CreditPurchase(ctx, s.DB, p.ID, s.now())
			if err != nil {
				creditFailures.Inc()
				lg.Error().Err(err).Msg("token credit failed")
				return nil, fmt.Errorf("%w: %v", ErrCreditFailed, err)
			}
			if credited {
				tokensCredited.Inc()
				lg.Info().Int64("tokens", p.TokensAmount).Msg("tokens credited")
			}
		}
		bal, err := repo.ProfileBalance(ctx, s.DB, p.ProfileID)
		if err != nil {
			return nil, fmt.Errorf("%w: read balance: %v", ErrPersistence, err)
		}
		res.NewBalance = &bal
		res.ApprovedAt = p.ApprovedAt
	case domain.StatusPending, domain.StatusCancelled, domain.StatusExpired, domain.StatusFailed:
	default:
		res.Status = domain.StatusPending
	}
	reconciliations.WithLabelValues(string(res.Status)).Inc()
	return res, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
