// Package gateway defines the payment gateway capability used by the
// purchase services: create a Pix charge and read a charge's live status.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRejected means the gateway answered and refused the request.
	ErrRejected = errors.New("gateway rejected request")
	// ErrUnavailable means the gateway could not be reached or answered garbage.
	ErrUnavailable = errors.New("gateway unavailable")
)

// APIError carries a non-2xx gateway answer. It unwraps to ErrRejected.
type APIError struct {
	HTTPStatus int
	Status     string // gateway "status" field when present
	Raw        []byte // full response body, kept for audit
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: http %d status=%q", e.HTTPStatus, e.Status)
}

func (e *APIError) Unwrap() error { return ErrRejected }

// ChargeRequest describes a Pix charge to create.
type ChargeRequest struct {
	Amount            float64
	Description       string
	PayerEmail        string
	ExternalReference string
	IdempotencyKey    string
	NotificationURL   string
	Metadata          map[string]any
}

// Charge is a created Pix charge and its display payload.
type Charge struct {
	ID           string
	Status       string
	StatusDetail string
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
	ExpiresAt    *time.Time
	Raw          []byte
}

// PaymentStatus is the live state of a charge.
type PaymentStatus struct {
	ID           string
	Status       string
	StatusDetail string
}

// Client is implemented by payment gateway adapters.
type Client interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetStatus(ctx context.Context, gatewayID string) (*PaymentStatus, error)
}
