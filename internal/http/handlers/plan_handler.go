package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/localmarket/tokens-backend/internal/plans"
)

// ListPlansResponse is the static plan catalog.
type ListPlansResponse struct {
	Plans []plans.Plan `json:"plans"`
}

// ListPlans godoc
// @ID          listTokenPlans
// @Summary     List token plans
// @Description Returns the fixed plan catalog with pt-BR formatted per-token rates.
// @Tags        Plans
// @Produce     json
// @Success     200  {object}  handlers.ListPlansResponse
// @Router      /token-plans [get]
func (h *Handlers) ListPlans(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	ok(c, http.StatusOK, ListPlansResponse{Plans: plans.All()})
}
