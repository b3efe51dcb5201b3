// Package client is a typed HTTP client for the purchase endpoints. It is
// what tokenctl and the polling controller talk to.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/localmarket/tokens-backend/internal/plans"
)

const maxBody = 1 << 20

// ErrIncompleteCharge means a purchase was created but the answer carries no
// purchase id or no Pix payload to show.
var ErrIncompleteCharge = errors.New("purchase created without pix data")

// Paths selects the route names a server exposes.
type Paths struct {
	Create string
	Status string
	Plans  string
}

var (
	// APIPaths are relative to the API base path (e.g. /api/v1).
	APIPaths = Paths{Create: "/token-purchases", Status: "/token-purchases/status", Plans: "/token-plans"}
	// FunctionPaths are the function-style names, relative to the host.
	FunctionPaths = Paths{Create: "/functions/v1/create_token_purchase", Status: "/functions/v1/check_token_purchase_status"}
)

// APIError is a non-2xx answer carrying the server error envelope.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("api: http %d %s: %s", e.StatusCode, e.Reason, e.Message)
}

// ReasonOf returns the envelope reason of err, or "" when err is not an
// *APIError.
func ReasonOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

// CreatePurchaseResponse is a pending purchase and its Pix charge.
type CreatePurchaseResponse struct {
	Status       string     `json:"status"`
	PurchaseID   string     `json:"purchaseId"`
	QRCode       string     `json:"qrCode"`
	QRCodeBase64 string     `json:"qrCodeBase64"`
	TicketURL    string     `json:"ticketUrl"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	Plan         plans.Plan `json:"plan"`
	// Replayed is set from the Idempotency-Replayed header.
	Replayed bool `json:"-"`
}

// StatusResponse is the reconciled status of a purchase.
type StatusResponse struct {
	Status     string     `json:"status"`
	PurchaseID string     `json:"purchaseId"`
	NewBalance *int64     `json:"newBalance,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
}

// Client calls the API on behalf of one bearer token.
type Client struct {
	BaseURL string
	Token   string
	// APIKey is sent as "apikey" when set.
	APIKey string
	Paths  Paths
	HTTP   *http.Client
}

// New returns a Client using APIPaths.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Paths:   APIPaths,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// CreatePurchase opens a purchase for planID. A non-empty idemKey is sent as
// Idempotency-Key.
func (c *Client) CreatePurchase(ctx context.Context, planID, idemKey string) (*CreatePurchaseResponse, error) {
	hdr := map[string]string{}
	if idemKey != "" {
		hdr["Idempotency-Key"] = idemKey
	}
	var out CreatePurchaseResponse
	resp, err := c.do(ctx, http.MethodPost, c.Paths.Create, map[string]string{"planId": planID}, hdr, &out)
	if err != nil {
		return nil, err
	}
	out.Replayed = resp.Header.Get("Idempotency-Replayed") == "true"
	if out.PurchaseID == "" || (out.QRCode == "" && out.QRCodeBase64 == "") {
		return &out, ErrIncompleteCharge
	}
	return &out, nil
}

// CheckStatus reconciles purchaseID.
func (c *Client) CheckStatus(ctx context.Context, purchaseID string) (*StatusResponse, error) {
	var out StatusResponse
	if _, err := c.do(ctx, http.MethodPost, c.Paths.Status, map[string]string{"purchaseId": purchaseID}, nil, &out); err != nil {
		return nil, err
	}
	if out.Status == "" {
		out.Status = "pending"
	}
	return &out, nil
}

// Plans lists the plan catalog.
func (c *Client) Plans(ctx context.Context) ([]plans.Plan, error) {
	if c.Paths.Plans == "" {
		return plans.All(), nil
	}
	var out struct {
		Plans []plans.Plan `json:"plans"`
	}
	if _, err := c.do(ctx, http.MethodGet, c.Paths.Plans, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, headers map[string]string, out any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env struct {
			Error     string `json:"error"`
			Reason    string `json:"reason"`
			RequestID string `json:"request_id"`
		}
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Reason, apiErr.Message, apiErr.RequestID = env.Reason, env.Error, env.RequestID
		}
		return resp, apiErr
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp, nil
}
