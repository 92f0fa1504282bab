package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const lockRetryInterval = 20 * time.Millisecond

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockTimeout is returned when a key stays held past the acquisition timeout.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// WalletLock implements ports.Locker with one SET NX PX key per ledger row.
// It serializes mutations across every API instance sharing the Redis.
type WalletLock struct {
	client  *goredis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger
}

// NewWalletLock creates a Redis-backed locker. ttl bounds how long a crashed holder
// blocks others; timeout bounds how long Lock waits.
func NewWalletLock(client *goredis.Client, ttl, timeout time.Duration, log zerolog.Logger) *WalletLock {
	return &WalletLock{
		client:  client,
		prefix:  lockKeyPrefix,
		ttl:     ttl,
		timeout: timeout,
		log:     log,
	}
}

// Lock acquires every key in the order given. Callers pass keys sorted so that
// two operations never wait on each other in opposite order.
func (l *WalletLock) Lock(ctx context.Context, keys ...string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	for _, k := range keys {
		key := l.prefix + k
		if err := l.acquire(ctx, key, token); err != nil {
			l.release(held, token)
			return nil, fmt.Errorf("lock %s: %w", k, err)
		}
		held = append(held, key)
	}

	return func() { l.release(held, token) }, nil
}

func (l *WalletLock) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetArgs(ctx, key, token, goredis.SetArgs{
			Mode: "NX",
			TTL:  l.ttl,
		}).Result()
		switch {
		case err == nil && ok == "OK":
			return nil
		case err != nil && !errors.Is(err, goredis.Nil):
			if ctx.Err() != nil {
				return ErrLockTimeout
			}
			return fmt.Errorf("redis set nx: %w", err)
		}

		select {
		case <-ctx.Done():
			return ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// release runs on a fresh context so a cancelled request still frees its keys.
func (l *WalletLock) release(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.client, []string{keys[i]}, token).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", keys[i]).Msg("failed to release ledger lock, waiting for ttl")
		}
	}
}
