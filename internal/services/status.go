package services

import (
	"strings"
	"time"

	"github.com/localmarket/tokens-backend/internal/domain"
)

// NormalizeStatus maps a raw gateway status onto approved, cancelled or
// pending. Unknown values count as pending.
func NormalizeStatus(raw string) domain.PurchaseStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return domain.StatusApproved
	case "cancelled", "rejected", "refunded", "charged_back":
		return domain.StatusCancelled
	default:
		// pending, in_process, authorized and anything unrecognized
		return domain.StatusPending
	}
}

// applyExpiry downgrades pending to expired once the stored Pix expiry has passed.
func applyExpiry(s domain.PurchaseStatus, expiresAt *time.Time, now time.Time) domain.PurchaseStatus {
	if s == domain.StatusPending && expiresAt != nil && now.After(*expiresAt) {
		return domain.StatusExpired
	}
	return s
}
