package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/localmarket/tokens-backend/internal/auth"
	"github.com/localmarket/tokens-backend/internal/domain"
	"github.com/localmarket/tokens-backend/internal/http/middleware"
	"github.com/localmarket/tokens-backend/internal/plans"
	"github.com/localmarket/tokens-backend/internal/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := RegisterValidators(v); err != nil {
			panic(err)
		}
	}
	os.Exit(m.Run())
}

// ---------- stubs ----------

type stubPurchases struct {
	createFn func(ctx context.Context, caller auth.Identity, planID, key string) (*services.CreateResult, error)
	listFn   func(ctx context.Context, userID string, page, size int) ([]domain.Purchase, int64, error)
	statsFn  func(ctx context.Context, userID string) (int64, *time.Time, error)
}

func (s *stubPurchases) Create(ctx context.Context, caller auth.Identity, planID, key string) (*services.CreateResult, error) {
	return s.createFn(ctx, caller, planID, key)
}

func (s *stubPurchases) ListPage(ctx context.Context, userID string, page, size int) ([]domain.Purchase, int64, error) {
	return s.listFn(ctx, userID, page, size)
}

func (s *stubPurchases) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	if s.statsFn == nil {
		return 0, nil, nil
	}
	return s.statsFn(ctx, userID)
}

type stubReconcile struct {
	checkFn func(ctx context.Context, caller auth.Identity, id string) (*services.StatusResult, error)
	byGwFn  func(ctx context.Context, gatewayID string) (*services.StatusResult, error)
}

func (s *stubReconcile) Check(ctx context.Context, caller auth.Identity, id string) (*services.StatusResult, error) {
	return s.checkFn(ctx, caller, id)
}

func (s *stubReconcile) ReconcileByGatewayID(ctx context.Context, gatewayID string) (*services.StatusResult, error) {
	return s.byGwFn(ctx, gatewayID)
}

type staticResolver auth.Identity

func (r staticResolver) Resolve(context.Context, string) (auth.Identity, error) {
	return auth.Identity(r), nil
}

var caller = auth.Identity{ID: "u1", Email: "u1@example.com"}

func newTestRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	authed := r.Group("", middleware.Authenticate(staticResolver(caller)))
	authed.POST("/token-purchases",
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil),
		h.CreatePurchase)
	authed.POST("/token-purchases/status", h.CheckPurchaseStatus)
	authed.GET("/token-purchases", h.ListPurchases)
	r.GET("/token-plans", h.ListPlans)
	r.POST("/webhooks/mercadopago", h.MercadoPagoWebhook)
	return r
}

func do(r http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func vipPlan(t *testing.T) plans.Plan {
	t.Helper()
	p, ok := plans.Lookup("vip")
	if !ok {
		t.Fatal("vip plan missing")
	}
	return p
}
