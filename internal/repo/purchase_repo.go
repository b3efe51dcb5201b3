// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Purchase
// model.
//
// Every status change is a conditional UPDATE guarded by the expected current
// status, so concurrent reconciliations cannot move a purchase backwards or
// out of a terminal state. The token credit is the single place where the
// profile balance grows, and it is gated on tokens_credited=false inside one
// transaction.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localmarket/tokens-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrProfileMissing is returned by CreditPurchase when the purchaser profile
// row vanished between purchase creation and crediting.
var ErrProfileMissing = errors.New("purchaser profile missing")

// ChargeLink is the gateway data persisted after a charge is created.
type ChargeLink struct {
	GatewayID    string
	Status       string
	StatusDetail string
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
	ExpiresAt    *time.Time
}

// CreatePurchase inserts p. A missing ID is generated and timestamps are
// normalized to UTC.
func CreatePurchase(ctx context.Context, db *gorm.DB, p *domain.Purchase) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.StatusPending
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	return db.WithContext(ctx).Create(p).Error
}

// GetPurchase fetches a purchase by id or returns ErrNotFound.
func GetPurchase(ctx context.Context, db *gorm.DB, id string) (*domain.Purchase, error) {
	var p domain.Purchase
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPurchaseByGatewayID fetches the purchase linked to an external payment id.
func GetPurchaseByGatewayID(ctx context.Context, db *gorm.DB, gatewayID string) (*domain.Purchase, error) {
	var p domain.Purchase
	if err := db.WithContext(ctx).Where("mp_payment_id = ?", gatewayID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// AttachCharge stores the gateway linkage and Pix payload on a pending
// purchase. It returns ErrNotFound if no pending purchase matched.
func AttachCharge(ctx context.Context, db *gorm.DB, id string, link ChargeLink, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"mp_payment_id":      link.GatewayID,
			"mp_status":          link.Status,
			"mp_status_detail":   link.StatusDetail,
			"pix_qr_code":        link.QRCode,
			"pix_qr_code_base64": link.QRCodeBase64,
			"pix_ticket_url":     link.TicketURL,
			"pix_expires_at":     link.ExpiresAt,
			"updated_at":         now.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed moves a pending purchase to failed, keeping the raw gateway
// response for audit. It reports whether the row changed.
func MarkFailed(ctx context.Context, db *gorm.DB, id, mpStatus, rawDetail string, now time.Time) (bool, error) {
	return transition(ctx, db, id, domain.StatusPending, map[string]any{
		"status":           domain.StatusFailed,
		"mp_status":        mpStatus,
		"mp_status_detail": rawDetail,
		"updated_at":       now.UTC(),
	})
}

// RefreshPending records the latest gateway status on a still-pending purchase.
func RefreshPending(ctx context.Context, db *gorm.DB, id, mpStatus, detail string, now time.Time) (bool, error) {
	return transition(ctx, db, id, domain.StatusPending, map[string]any{
		"mp_status":        mpStatus,
		"mp_status_detail": detail,
		"updated_at":       now.UTC(),
	})
}

// CloseTerminal moves a pending purchase to cancelled or expired.
func CloseTerminal(ctx context.Context, db *gorm.DB, id string, to domain.PurchaseStatus, mpStatus, detail string, now time.Time) (bool, error) {
	if to != domain.StatusCancelled && to != domain.StatusExpired {
		return false, errors.New("repo: CloseTerminal only accepts cancelled or expired")
	}
	return transition(ctx, db, id, domain.StatusPending, map[string]any{
		"status":           to,
		"mp_status":        mpStatus,
		"mp_status_detail": detail,
		"updated_at":       now.UTC(),
	})
}

// MarkApproved moves a pending purchase to approved and stamps approved_at.
// It reports false when the purchase was not pending (e.g. another caller
// approved it first).
func MarkApproved(ctx context.Context, db *gorm.DB, id, mpStatus, detail string, now time.Time) (bool, error) {
	ts := now.UTC()
	return transition(ctx, db, id, domain.StatusPending, map[string]any{
		"status":           domain.StatusApproved,
		"mp_status":        mpStatus,
		"mp_status_detail": detail,
		"approved_at":      ts,
		"updated_at":       ts,
	})
}

func transition(ctx context.Context, db *gorm.DB, id string, from domain.PurchaseStatus, cols map[string]any) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ? AND status = ?", id, from).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreditPurchase applies the purchase's tokens to its profile exactly once.
//
// Inside one transaction it flips tokens_credited from false to true on an
// approved purchase and increments the profile balance by tokens_amount. When
// the flag was already set it returns (false, nil). Any failure rolls both
// writes back, leaving the purchase uncredited for a later retry.
func CreditPurchase(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	credited := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts := now.UTC()
		res := tx.Model(&domain.Purchase{}).
			Where("id = ? AND status = ? AND tokens_credited = ?", id, domain.StatusApproved, false).
			Updates(map[string]any{
				"tokens_credited":    true,
				"tokens_credited_at": ts,
				"updated_at":         ts,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var p domain.Purchase
		if err := tx.Select("usuario_id", "tokens_amount").Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		res = tx.Model(&domain.Profile{}).
			Where("id = ?", p.ProfileID).
			Update("tokens", gorm.Expr("tokens + ?", p.TokensAmount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrProfileMissing
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}

// CountPurchases returns the number of purchases owned by userID.
func CountPurchases(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListPurchasesPage returns one page of userID's purchases, newest first.
func ListPurchasesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Purchase, error) {
	var out []domain.Purchase
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
