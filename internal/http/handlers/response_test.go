package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/localmarket/tokens-backend/internal/services"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Set("requestID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ReasonInternal, "kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Status != "error" || resp.RequestID != "rid-500" || resp.Reason != ReasonInternal || resp.Error != "kaboom" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_Fail_4xx_NotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) { c.Set("logger", &logger); c.Next() })
	r.GET("/nf", func(c *gin.Context) { Fail(c, http.StatusNotFound, ReasonNotFound, "route not found") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nf", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"reason":"not_found"`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx must not be logged by fail: %s", buf.String())
	}
}

func TestStatusFor_Table(t *testing.T) {
	cases := []struct {
		err    error
		status int
		reason string
	}{
		{services.ErrUnauthorized, 401, ReasonUnauthorized},
		{services.ErrInvalidPlan, 400, ReasonInvalidPlan},
		{services.ErrProfileNotFound, 404, ReasonProfileNotFound},
		{services.ErrForbidden, 403, ReasonForbidden},
		{services.ErrNotFound, 404, ReasonPurchaseNotFound},
		{services.ErrMissingPurchaseID, 400, ReasonMissingPurchaseID},
		{services.ErrMissingGatewayReference, 400, ReasonMissingGatewayReference},
		{services.ErrGatewayTestMode, 400, ReasonGatewayTestMode},
		{fmt.Errorf("%w: timeout", services.ErrGatewayError), 502, ReasonGatewayError},
		{fmt.Errorf("%w: disk full", services.ErrPersistence), 500, ReasonPersistence},
		{fmt.Errorf("%w: profile gone", services.ErrCreditFailed), 500, ReasonCreditFailed},
		{errors.New("something else"), 500, ReasonInternal},
	}
	for _, tc := range cases {
		status, reason, msg := statusFor(tc.err)
		if status != tc.status || reason != tc.reason || msg == "" {
			t.Errorf("statusFor(%v) = %d %s %q; want %d %s", tc.err, status, reason, msg, tc.status, tc.reason)
		}
	}
	if _, _, msg := statusFor(fmt.Errorf("%w: secret dsn", services.ErrPersistence)); strings.Contains(msg, "secret") {
		t.Fatal("internal detail leaked into public message")
	}
}
