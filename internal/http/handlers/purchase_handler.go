// Purchase HTTP handlers.
//
//   - POST /token-purchases          open a purchase and its Pix charge
//   - POST /token-purchases/status   reconcile a purchase with the gateway
//   - GET  /token-purchases          the caller's history (paginated, ETag)
//
// The first two are also mounted under their legacy function names.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/localmarket/tokens-backend/internal/domain"
	"github.com/localmarket/tokens-backend/internal/http/middleware"
	"github.com/localmarket/tokens-backend/internal/plans"
	"github.com/localmarket/tokens-backend/internal/services"
	"github.com/localmarket/tokens-backend/internal/utils"
)

// CreatePurchaseRequest selects a plan.
type CreatePurchaseRequest struct {
	PlanID string `json:"planId" binding:"required,planid" example:"vip"`
}

// CreatePurchaseResponse is a pending purchase with its Pix payload.
type CreatePurchaseResponse struct {
	Status       string     `json:"status" example:"pending"`
	PurchaseID   string     `json:"purchaseId" example:"6f1c2b9e-0b7a-4c1e-9d55-2f1f0d7f4a11"`
	QRCode       string     `json:"qrCode"`
	QRCodeBase64 string     `json:"qrCodeBase64"`
	TicketURL    string     `json:"ticketUrl"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	Plan         plans.Plan `json:"plan"`
}

// CheckStatusRequest names the purchase to reconcile.
type CheckStatusRequest struct {
	PurchaseID string `json:"purchaseId" example:"6f1c2b9e-0b7a-4c1e-9d55-2f1f0d7f4a11"`
}

// CheckStatusResponse reports a purchase status. NewBalance and ApprovedAt
// are present only for approved purchases.
type CheckStatusResponse struct {
	Status     string     `json:"status" example:"approved"`
	PurchaseID string     `json:"purchaseId"`
	NewBalance *int64     `json:"newBalance,omitempty" example:"160"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
}

// Pagination carries list metadata.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListPurchasesResponse is one page of the caller's purchases.
type ListPurchasesResponse struct {
	Purchases  []domain.Purchase `json:"purchases"`
	Pagination Pagination        `json:"pagination"`
}

// CreatePurchase godoc
// @ID          createTokenPurchase
// @Summary     Open a token purchase
// @Description Creates a pending purchase for the chosen plan and returns its Pix charge. A repeated Idempotency-Key returns the original purchase with Idempotency-Replayed: true.
// @Tags        Purchases
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Client idempotency key"
// @Param       body             body    handlers.CreatePurchaseRequest  true  "Plan selection"
//
// @Success     200  {object}  handlers.CreatePurchaseResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from a stored result"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid plan or test-mode gateway"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Role cannot buy tokens"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Persistence error"
// @Failure     502  {object}  handlers.ErrorResponse  "Gateway error"
// @Router      /token-purchases [post]
func (h *Handlers) CreatePurchase(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			failErr(c, services.ErrInvalidPlan)
			return
		}
		fail(c, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	key, _ := middleware.GetIdempotencyKey(c)

	res, err := h.purchases.Create(c.Request.Context(), caller, req.PlanID, key)
	if err != nil {
		failErr(c, err)
		return
	}
	if res.Replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	p := res.Purchase
	noStore(c)
	ok(c, http.StatusOK, CreatePurchaseResponse{
		Status:       string(p.Status),
		PurchaseID:   p.ID,
		QRCode:       p.PixQRCode,
		QRCodeBase64: p.PixQRCodeBase64,
		TicketURL:    p.PixTicketURL,
		ExpiresAt:    p.PixExpiresAt,
		Plan:         res.Plan,
	})
}

// CheckPurchaseStatus godoc
// @ID          checkTokenPurchaseStatus
// @Summary     Reconcile a purchase
// @Description Fetches the live gateway status of a purchase owned by the caller. On approval the tokens are credited exactly once and the new balance is returned.
// @Tags        Purchases
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CheckStatusRequest  true  "Purchase to check"
//
// @Success     200  {object}  handlers.CheckStatusResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing purchase id or gateway reference"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the purchase owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Purchase not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Credit failed"
// @Failure     502  {object}  handlers.ErrorResponse  "Gateway error"
// @Router      /token-purchases/status [post]
func (h *Handlers) CheckPurchaseStatus(c *gin.Context) {
	var req CheckStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ReasonBadRequest, "invalid JSON body")
		return
	}
	caller, _ := middleware.IdentityFrom(c)

	res, err := h.reconcile.Check(c.Request.Context(), caller, strings.TrimSpace(req.PurchaseID))
	if err != nil {
		failErr(c, err)
		return
	}
	noStore(c)
	ok(c, http.StatusOK, statusResponse(res))
}

func statusResponse(res *services.StatusResult) CheckStatusResponse {
	return CheckStatusResponse{
		Status:     string(res.Status),
		PurchaseID: res.PurchaseID,
		NewBalance: res.NewBalance,
		ApprovedAt: res.ApprovedAt,
	}
}

// ListPurchases godoc
// @ID          listTokenPurchases
// @Summary     List my purchases (paginated)
// @Description Returns the caller's purchases, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Purchases
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListPurchasesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /token-purchases [get]
func (h *Handlers) ListPurchases(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserIDFrom(c)
	pg := utils.ParsePage(c.Query("page"), c.Query("page_size"), 20, 100)

	// ETag pre-check; a stats failure just skips the conditional answer.
	if count, maxTS, err := h.purchases.Stats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"purchases:%s:%d:%d:%d:%d"`, uid, count, ts, pg.Number, pg.Size)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.purchases.ListPage(ctx, uid, pg.Number, pg.Size)
	if err != nil {
		failErr(c, err)
		return
	}
	pages := utils.TotalPages(total, pg.Size)
	ok(c, http.StatusOK, ListPurchasesResponse{
		Purchases: items,
		Pagination: Pagination{
			Page:       pg.Number,
			PageSize:   pg.Size,
			Total:      total,
			TotalPages: pages,
			HasNext:    pg.Number < pages,
		},
	})
}
