// Package httpapi wires the HTTP transport (Gin) to the purchase services,
// middleware and route handlers. Cross-cutting concerns (tracing, request
// ids, redacted access logs, panic recovery, metrics, CORS, security headers)
// are global; identity, idempotency and rate limiting are attached per route
// group because each endpoint resolves callers differently.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/localmarket/tokens-backend/internal/auth"
	"github.com/localmarket/tokens-backend/internal/config"
	_ "github.com/localmarket/tokens-backend/internal/docs" // registers the OpenAPI document
	"github.com/localmarket/tokens-backend/internal/http/handlers"
	"github.com/localmarket/tokens-backend/internal/http/middleware"
	"github.com/localmarket/tokens-backend/internal/repo"
	"github.com/localmarket/tokens-backend/internal/services"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	DB        *gorm.DB
	Purchases handlers.PurchaseService
	Reconcile handlers.ReconcileService

	// CreateAuth resolves callers of purchase creation and history.
	CreateAuth auth.Resolver
	// StatusAuth resolves callers of the status check. It is usually an
	// auth.Chain so that a provider outage falls back to verified claims.
	StatusAuth auth.Resolver
}

// corsHeaders are the request headers browsers may send cross-origin.
var corsHeaders = []string{
	"Origin", "Accept", "Content-Type", "Authorization",
	"X-Client-Info", "Apikey", middleware.HeaderIdempotencyKey,
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Global middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery
//  5. Body size limit
//  6. Metrics (+ /metrics)
//  7. optional gzip
//  8. CORS and security headers
//
// Per group: Authenticate, then the idempotency validator (creation only,
// so replays can bypass the limiter), then the rate limiter.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := handlers.RegisterValidators(v); err != nil {
			panic(err)
		}
	}

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(64 << 10))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ReasonNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ReasonMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Purchases, deps.Reconcile, cfg.Gateway.WebhookSecret)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	createChain := []gin.HandlerFunc{
		middleware.Authenticate(deps.CreateAuth),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{
			Scope:  services.IdempotencyScopeCreate,
			MaxLen: 200,
		}, idempotencyLookup(deps.DB)),
		rl.Handler(),
		h.CreatePurchase,
	}
	statusChain := []gin.HandlerFunc{
		middleware.Authenticate(deps.StatusAuth),
		rl.Handler(),
		h.CheckPurchaseStatus,
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/token-plans", h.ListPlans)

		api.POST("/token-purchases", createChain...)
		api.POST("/token-purchases/status", statusChain...)
		api.GET("/token-purchases", middleware.Authenticate(deps.CreateAuth), rl.Handler(), h.ListPurchases)

		api.POST("/webhooks/mercadopago", h.MercadoPagoWebhook)
	}

	// Function-style names used by existing web clients.
	fn := r.Group("/functions/v1")
	{
		fn.POST("/create_token_purchase", createChain...)
		fn.POST("/check_token_purchase_status", statusChain...)
	}
}

// idempotencyLookup reports whether a creation key is still live.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	if db == nil {
		return nil
	}
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return rec != nil, nil
	}
}

// corsMiddleware allows any origin when origins is empty; otherwise the
// request Origin is echoed only when it is on the allowlist.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    []string{"X-Request-ID", middleware.HeaderIdempotencyReplayed, "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// ACAO is set even without an Origin header, as the web client expects.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps request bodies at maxBytes; larger bodies fail to bind.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
