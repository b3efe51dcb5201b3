// Package handlers implements the HTTP endpoints of the token purchase API.
//
// Every failure is answered with the same envelope so that clients can branch
// on the machine-readable reason:
//
//	HTTP/1.1 403 Forbidden
//	{
//	  "status": "error",
//	  "error": "only professionals and establishments can buy tokens",
//	  "reason": "forbidden",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/localmarket/tokens-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Always "error"
	Status string `json:"status" example:"error"`
	// Human-readable message
	Error string `json:"error" example:"purchase not found"`
	// Stable, machine-readable reason (see errors.go)
	Reason string `json:"reason" example:"purchase_not_found"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// fail aborts with the error envelope. 5xx answers are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, reason, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("reason", reason).
			Str("error", msg).
			Msg("api error")
	}
	middleware.AbortError(c, status, reason, msg)
}

// Fail is the exported variant of fail, used by the router fallbacks.
func Fail(c *gin.Context, status int, reason, msg string) { fail(c, status, reason, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noStore marks a response as carrying per-user payment data.
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}
