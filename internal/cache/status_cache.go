// Package cache provides a Redis-backed short-lived cache of live gateway
// payment status. It absorbs bursts of polling from several open tabs for the
// same purchase; it never holds anything about crediting.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/localmarket/tokens-backend/internal/gateway"
)

const keyPrefix = "tokens:gwstatus:"

// Open parses a redis:// URL and verifies the server answers.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// StatusCache wraps a gateway.Client and caches GetStatus answers.
type StatusCache struct {
	gateway.Client
	client *goredis.Client
	ttl    time.Duration
}

// NewStatusCache returns next unchanged when client is nil or ttl is zero.
func NewStatusCache(next gateway.Client, client *goredis.Client, ttl time.Duration) gateway.Client {
	if client == nil || ttl <= 0 {
		return next
	}
	return &StatusCache{Client: next, client: client, ttl: ttl}
}

// GetStatus serves from Redis when fresh and otherwise asks the gateway.
// Redis failures degrade to a direct gateway call.
func (s *StatusCache) GetStatus(ctx context.Context, gatewayID string) (*gateway.PaymentStatus, error) {
	key := keyPrefix + gatewayID

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var st gateway.PaymentStatus
		if jerr := json.Unmarshal(raw, &st); jerr == nil {
			cacheHits.Inc()
			return &st, nil
		}
	case err != goredis.Nil:
		log.Ctx(ctx).Warn().Err(err).Str("gateway_id", gatewayID).Msg("status cache read failed")
	}
	cacheMisses.Inc()

	st, err := s.Client.GetStatus(ctx, gatewayID)
	if err != nil {
		return nil, err
	}
	if buf, jerr := json.Marshal(st); jerr == nil {
		if serr := s.client.Set(ctx, key, buf, s.ttl).Err(); serr != nil {
			log.Ctx(ctx).Warn().Err(serr).Str("gateway_id", gatewayID).Msg("status cache write failed")
		}
	}
	return st, nil
}
