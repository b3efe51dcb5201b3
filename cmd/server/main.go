// Command server runs the token purchases HTTP API.
//
// @title                      Token Purchases API
// @version                    1.0
// @description                Pix token purchases: plan catalog, purchase initiation, reconciliation with Mercado Pago and exactly-once crediting.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/localmarket/tokens-backend/internal/auth"
	"github.com/localmarket/tokens-backend/internal/cache"
	"github.com/localmarket/tokens-backend/internal/config"
	"github.com/localmarket/tokens-backend/internal/gateway"
	"github.com/localmarket/tokens-backend/internal/gateway/mercadopago"
	httpapi "github.com/localmarket/tokens-backend/internal/http"
	"github.com/localmarket/tokens-backend/internal/observability"
	"github.com/localmarket/tokens-backend/internal/repo"
	"github.com/localmarket/tokens-backend/internal/services"
	"github.com/localmarket/tokens-backend/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if err := observability.InstrumentDB(db); err != nil {
		log.Fatal().Err(err).Msg("instrument database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var gw gateway.Client = gateway.WithQRFallback(
		mercadopago.New(cfg.Gateway.BaseURL, cfg.Gateway.AccessToken, cfg.Gateway.Timeout),
	)
	var rdb *goredis.Client
	if cfg.Cache.RedisURL != "" {
		if rdb, err = cache.Open(ctx, cfg.Cache.RedisURL); err != nil {
			log.Fatal().Err(err).Msg("open redis")
		}
		defer rdb.Close()
	}
	gw = cache.NewStatusCache(gw, rdb, cfg.Cache.StatusTTL)

	if cfg.GatewayTestMode() {
		log.Warn().Bool("allowed", cfg.Gateway.AllowTestToken).Msg("payment gateway uses a test token")
	}
	createAuth, statusAuth := auth.Resolvers(cfg.Auth.URL, cfg.Auth.APIKey, cfg.Auth.JWTSecret, cfg.Auth.Timeout)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB: db,
		Purchases: &services.PurchaseService{
			DB:              db,
			Gateway:         gw,
			NotificationURL: cfg.Gateway.NotificationURL,
			TestMode:        cfg.GatewayTestMode(),
			AllowTestMode:   cfg.Gateway.AllowTestToken,
			IdempotencyTTL:  cfg.IdempotencyTTL,
		},
		Reconcile:  &services.ReconcileService{DB: db, Gateway: gw},
		CreateAuth: createAuth,
		StatusAuth: statusAuth,
	}, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Str("version", version).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			os.Exit(1)
		}
	}
}
