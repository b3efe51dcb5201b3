// Package domain defines the persistence models for token purchases and
// purchaser profiles. These types are mapped with GORM and shared across the
// repository and service layers.
package domain

import "time"

// PurchaseStatus is the lifecycle state of a Purchase.
type PurchaseStatus string

const (
	StatusPending   PurchaseStatus = "pending"
	StatusApproved  PurchaseStatus = "approved"
	StatusCancelled PurchaseStatus = "cancelled"
	StatusExpired   PurchaseStatus = "expired"
	StatusFailed    PurchaseStatus = "failed"
)

// Terminal reports whether no further transition is allowed out of s.
// An approved purchase is terminal for its status, even though a pending
// credit may still be applied to it.
func (s PurchaseStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusCancelled, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// Role is the persisted profile role.
type Role string

const (
	RoleProfessional  Role = "profissional"
	RoleEstablishment Role = "estabelecimento"
	RoleClient        Role = "cliente"
)

// CanBuyTokens reports whether profiles with this role may purchase tokens.
func (r Role) CanBuyTokens() bool {
	return r == RoleProfessional || r == RoleEstablishment
}

// Purchase is one token purchase attempt and its Pix charge.
//
// Commercial terms (plan, tokens, amount, rate) are copied from the catalog
// at creation and never re-read from it. TokensCredited flips false->true at
// most once, in the same transaction that increments the profile balance.
type Purchase struct {
	ID        string `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID    string `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_purchases_user,priority:1"`
	ProfileID string `json:"usuario_id"  gorm:"column:usuario_id;type:varchar(64);not null;index"`
	UserEmail string `json:"user_email"  gorm:"type:varchar(255);not null"`
	Role      Role   `json:"role"        gorm:"type:varchar(32);not null"`

	PlanID       string  `json:"plan_id"       gorm:"type:varchar(32);not null"`
	PlanName     string  `json:"plan_name"     gorm:"type:varchar(64);not null"`
	TokensAmount int64   `json:"tokens_amount" gorm:"not null"`
	Amount       float64 `json:"amount"        gorm:"type:numeric(10,2);not null"`
	RsPerCoin    float64 `json:"rs_per_coin"   gorm:"type:numeric(10,2);not null"`

	Status PurchaseStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`

	MPPaymentID     *string    `json:"mp_payment_id,omitempty"     gorm:"column:mp_payment_id;type:varchar(64);uniqueIndex"`
	MPStatus        string     `json:"mp_status,omitempty"         gorm:"column:mp_status;type:varchar(32)"`
	MPStatusDetail  string     `json:"mp_status_detail,omitempty"  gorm:"column:mp_status_detail;type:text"`
	PixQRCode       string     `json:"pix_qr_code,omitempty"       gorm:"type:text"`
	PixQRCodeBase64 string     `json:"pix_qr_code_base64,omitempty" gorm:"column:pix_qr_code_base64;type:text"`
	PixTicketURL    string     `json:"pix_ticket_url,omitempty"    gorm:"type:text"`
	PixExpiresAt    *time.Time `json:"pix_expires_at,omitempty"`

	TokensCredited   bool       `json:"tokens_credited"              gorm:"not null;default:false"`
	TokensCreditedAt *time.Time `json:"tokens_credited_at,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_purchases_user,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Purchase.
func (Purchase) TableName() string { return "token_purchases" }

// GatewayID returns the external payment id or "" when the charge was never linked.
func (p *Purchase) GatewayID() string {
	if p.MPPaymentID == nil {
		return ""
	}
	return *p.MPPaymentID
}

// Profile is the purchaser profile holding the token balance.
type Profile struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Role      Role      `json:"role"       gorm:"type:varchar(32);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;index"`
	Tokens    int64     `json:"tokens"     gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "usuarios" }
