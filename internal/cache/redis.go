package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key this service writes.
const DefaultPrefix = "botpanel:"

// unlockScript deletes the lock only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis wraps a go-redis client. It serves as a blob backend and as a
// source of short-lived exclusive locks.
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// Config defines connection parameters for Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
	Prefix   string
}

// New returns a Redis client based on provided configuration.
func New(cfg Config, logger *slog.Logger) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return NewWithClient(redis.NewClient(opts), cfg.Prefix, logger)
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, prefix string, logger *slog.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "redis"),
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get returns the blob under key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return res, true, nil
}

// Set stores the blob under key without expiry.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// TryLock takes an exclusive lock named name for ttl and returns the owner
// token to pass to Unlock. It reports false when another holder owns the lock.
func (r *Redis) TryLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key("lock:"+name), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis lock %s: %w", name, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases a lock taken by TryLock. A lock that expired and was taken
// by another holder is not touched.
func (r *Redis) Unlock(ctx context.Context, name, token string) error {
	n, err := unlockScript.Run(ctx, r.client, []string{r.key("lock:" + name)}, token).Int()
	if err != nil {
		r.logger.Warn("failed releasing lock", "lock", name, "error", err)
		return fmt.Errorf("redis unlock %s: %w", name, err)
	}
	if n == 0 {
		r.logger.Warn("lock expired before release", "lock", name)
	}
	return nil
}

// Close releases Redis resources.
func (r *Redis) Close() error {
	return r.client.Close()
}
