// Package mercadopago implements gateway.Client against the Mercado Pago
// payments API (POST /v1/payments, GET /v1/payments/{id}) for Pix charges.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/localmarket/tokens-backend/internal/gateway"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.mercadopago.com"

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Client talks to Mercado Pago with a private access token.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

// New returns a Client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, accessToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

type payer struct {
	Email string `json:"email"`
}

type createPaymentRequest struct {
	TransactionAmount float64        `json:"transaction_amount"`
	Description       string         `json:"description"`
	PaymentMethodID   string         `json:"payment_method_id"`
	Payer             payer          `json:"payer"`
	ExternalReference string         `json:"external_reference,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	NotificationURL   string         `json:"notification_url,omitempty"`
}

type paymentResponse struct {
	ID                 paymentID `json:"id"`
	Status             string    `json:"status"`
	StatusDetail       string    `json:"status_detail"`
	DateOfExpiration   string    `json:"date_of_expiration"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// paymentID accepts the numeric ids Mercado Pago returns as well as strings.
type paymentID string

func (p *paymentID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*p = ""
		return nil
	}
	*p = paymentID(strings.Trim(s, `"`))
	return nil
}

// CreateCharge implements gateway.Client.
func (c *Client) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	payload := createPaymentRequest{
		TransactionAmount: req.Amount,
		Description:       req.Description,
		PaymentMethodID:   "pix",
		Payer:             payer{Email: req.PayerEmail},
		ExternalReference: req.ExternalReference,
		Metadata:          req.Metadata,
		NotificationURL:   req.NotificationURL,
	}
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["X-Idempotency-Key"] = req.IdempotencyKey
	}

	status, raw, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v1/payments", payload, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment: %v", gateway.ErrUnavailable, err)
	}
	var out paymentResponse
	decodeErr := json.Unmarshal(raw, &out)
	if status < 200 || status >= 300 {
		return nil, &gateway.APIError{HTTPStatus: status, Status: out.Status, Raw: raw}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode payment: %v", gateway.ErrUnavailable, decodeErr)
	}
	if out.ID == "" {
		return nil, &gateway.APIError{HTTPStatus: status, Status: out.Status, Raw: raw}
	}

	td := out.PointOfInteraction.TransactionData
	ch := &gateway.Charge{
		ID:           string(out.ID),
		Status:       out.Status,
		StatusDetail: out.StatusDetail,
		QRCode:       td.QRCode,
		QRCodeBase64: td.QRCodeBase64,
		TicketURL:    td.TicketURL,
		Raw:          raw,
	}
	if out.DateOfExpiration != "" {
		if ts, err := time.Parse(time.RFC3339, out.DateOfExpiration); err == nil {
			ts = ts.UTC()
			ch.ExpiresAt = &ts
		}
	}
	return ch, nil
}

// GetStatus implements gateway.Client.
func (c *Client) GetStatus(ctx context.Context, gatewayID string) (*gateway.PaymentStatus, error) {
	endpoint := c.baseURL + "/v1/payments/" + url.PathEscape(gatewayID)
	status, raw, err := c.doJSON(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: get payment: %v", gateway.ErrUnavailable, err)
	}
	var out paymentResponse
	decodeErr := json.Unmarshal(raw, &out)
	if status < 200 || status >= 300 {
		return nil, &gateway.APIError{HTTPStatus: status, Status: out.Status, Raw: raw}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode payment: %v", gateway.ErrUnavailable, decodeErr)
	}
	id := string(out.ID)
	if id == "" {
		id = gatewayID
	}
	return &gateway.PaymentStatus{ID: id, Status: out.Status, StatusDetail: out.StatusDetail}, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any, headers map[string]string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}
