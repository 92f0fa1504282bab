package redis

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyNamespace prefixes every key the ledger writes, so one Redis can be
// shared with other services.
const keyNamespace = "ledger:"

// Key families under keyNamespace.
const (
	lockKeyPrefix      = keyNamespace + "lock:"
	rateLimitKeyPrefix = keyNamespace + "ratelimit:"
)

// NewClient connects to the Redis that backs the wallet locks and the rate
// limiter. Startup fails when it does not answer a ping.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("component", "redis").
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Str("namespace", keyNamespace).
		Msg("redis ready")

	return client, nil
}
