package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/localmarket/tokens-backend/internal/services"
)

// Reason codes returned in the "reason" field of error responses.
const (
	ReasonBadRequest              = "bad_request"
	ReasonUnauthorized            = "unauthorized"
	ReasonInvalidPlan             = "invalid_plan"
	ReasonProfileNotFound         = "profile_not_found"
	ReasonForbidden               = "forbidden"
	ReasonPurchaseNotFound        = "purchase_not_found"
	ReasonMissingPurchaseID       = "missing_purchase_id"
	ReasonMissingGatewayReference = "missing_gateway_reference"
	ReasonGatewayError            = "gateway_error"
	ReasonGatewayTestMode         = "mercado_pago_test_mode"
	ReasonPersistence             = "persistence_error"
	ReasonCreditFailed            = "credit_failed"
	ReasonInternal                = "internal_error"
	ReasonNotFound                = "not_found"
	ReasonMethodNotAllowed        = "method_not_allowed"
)

type errorMapping struct {
	err    error
	status int
	reason string
	msg    string
}

// errorTable maps service sentinels to HTTP answers. Order matters only for
// errors wrapping more than one sentinel; none currently do.
var errorTable = []errorMapping{
	{services.ErrUnauthorized, http.StatusUnauthorized, ReasonUnauthorized, "unauthorized"},
	{services.ErrInvalidPlan, http.StatusBadRequest, ReasonInvalidPlan, "invalid plan selected"},
	{services.ErrProfileNotFound, http.StatusNotFound, ReasonProfileNotFound, "user profile not found"},
	{services.ErrForbidden, http.StatusForbidden, ReasonForbidden, "forbidden"},
	{services.ErrNotFound, http.StatusNotFound, ReasonPurchaseNotFound, "purchase not found"},
	{services.ErrMissingPurchaseID, http.StatusBadRequest, ReasonMissingPurchaseID, "missing purchase id"},
	{services.ErrMissingGatewayReference, http.StatusBadRequest, ReasonMissingGatewayReference, "pix payment id is missing for this purchase"},
	{services.ErrGatewayTestMode, http.StatusBadRequest, ReasonGatewayTestMode, "payment gateway token is in test mode"},
	{services.ErrGatewayError, http.StatusBadGateway, ReasonGatewayError, "payment gateway error"},
	{services.ErrPersistence, http.StatusInternalServerError, ReasonPersistence, "could not persist purchase data"},
	{services.ErrCreditFailed, http.StatusInternalServerError, ReasonCreditFailed, "payment approved but token credit failed"},
}

// statusFor returns the HTTP status, reason and public message for err.
// Unknown errors map to 500 internal_error; internals never leak.
func statusFor(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.reason, m.msg
		}
	}
	return http.StatusInternalServerError, ReasonInternal, "internal server error"
}

// failErr answers with the mapping for err. Server-side failures are also
// recorded on the Gin context so the access log carries the cause.
func failErr(c *gin.Context, err error) {
	status, reason, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	fail(c, status, reason, msg)
}
