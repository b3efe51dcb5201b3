// Package services defines the business logic for token purchases: creating a
// purchase with its Pix charge and reconciling it with the gateway.
// This file centralizes the service-level error values so that handlers can
// map them to HTTP statuses and reason codes in one place.
package services

import "errors"

var (
	// ErrUnauthorized indicates that no valid identity was resolved.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidPlan is returned for plan ids missing from the catalog.
	ErrInvalidPlan = errors.New("invalid plan selected")

	// ErrProfileNotFound means the caller has no purchaser profile.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrForbidden covers both the role gate and the ownership gate.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates an unknown purchase id.
	ErrNotFound = errors.New("purchase not found")

	// ErrMissingGatewayReference means the purchase was never linked to a charge.
	ErrMissingGatewayReference = errors.New("pix payment id is missing for this purchase")

	// ErrGatewayError wraps any failure talking to the payment gateway.
	ErrGatewayError = errors.New("payment gateway error")

	// ErrPersistence wraps data backend write/read failures.
	ErrPersistence = errors.New("persistence error")

	// ErrCreditFailed means the payment was approved but the balance was not
	// increased. The purchase stays uncredited and the next reconciliation retries.
	ErrCreditFailed = errors.New("payment approved but token credit failed")

	// ErrMissingPurchaseID is returned when a status check carries no id.
	ErrMissingPurchaseID = errors.New("missing purchase id")

	// ErrGatewayTestMode blocks purchases while the gateway uses a sandbox token.
	ErrGatewayTestMode = errors.New("payment gateway token is in test mode")
)
