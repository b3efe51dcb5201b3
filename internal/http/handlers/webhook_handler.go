package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/localmarket/tokens-backend/internal/http/middleware"
	"github.com/localmarket/tokens-backend/internal/services"
)

// WebhookNotification is the subset of a Mercado Pago notification we read.
type WebhookNotification struct {
	Type   string `json:"type" example:"payment"`
	Action string `json:"action" example:"payment.updated"`
	Data   struct {
		ID string `json:"id" example:"1234567890"`
	} `json:"data"`
}

// WebhookAck acknowledges a notification.
type WebhookAck struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
}

// MercadoPagoWebhook godoc
// @ID          mercadoPagoWebhook
// @Summary     Gateway payment notification
// @Description Reconciles the purchase linked to the notified payment id as the system actor. Unknown or irrelevant notifications are acknowledged with 200 so the gateway stops retrying.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Webhook-Secret  header  string  false  "Shared secret, required when configured"
// @Param       id                query   string  false  "Payment id (legacy IPN form)"
// @Param       data.id           query   string  false  "Payment id"
// @Param       body              body    handlers.WebhookNotification  false  "Notification"
//
// @Success     200  {object}  handlers.WebhookAck
// @Failure     401  {object}  handlers.ErrorResponse  "Bad secret"
// @Failure     500  {object}  handlers.ErrorResponse  "Reconciliation failed; gateway should retry"
// @Failure     502  {object}  handlers.ErrorResponse  "Gateway error; gateway should retry"
// @Router      /webhooks/mercadopago [post]
func (h *Handlers) MercadoPagoWebhook(c *gin.Context) {
	if h.webhookSecret != "" {
		got := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			fail(c, http.StatusUnauthorized, ReasonUnauthorized, "invalid webhook secret")
			return
		}
	}

	var n WebhookNotification
	_ = c.ShouldBindJSON(&n) // query-only notifications have no body
	gatewayID := strings.TrimSpace(n.Data.ID)
	if gatewayID == "" {
		gatewayID = strings.TrimSpace(c.Query("data.id"))
	}
	if gatewayID == "" {
		gatewayID = strings.TrimSpace(c.Query("id"))
	}
	kind := n.Type
	if kind == "" {
		kind = c.Query("type")
	}
	if kind == "" {
		kind = c.Query("topic")
	}

	lg := middleware.LoggerFrom(c).With().Str("gateway_id", gatewayID).Str("type", kind).Logger()
	if gatewayID == "" || (kind != "" && kind != "payment") {
		lg.Debug().Msg("notification ignored")
		ok(c, http.StatusOK, WebhookAck{Received: true})
		return
	}

	res, err := h.reconcile.ReconcileByGatewayID(c.Request.Context(), gatewayID)
	switch {
	case err == nil:
		lg.Info().Str("status", string(res.Status)).Str("purchase_id", res.PurchaseID).Msg("notification reconciled")
		ok(c, http.StatusOK, WebhookAck{Received: true, Status: string(res.Status)})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrMissingGatewayReference):
		lg.Warn().Msg("notification for unknown payment")
		ok(c, http.StatusOK, WebhookAck{Received: true})
	default:
		failErr(c, err)
	}
}
