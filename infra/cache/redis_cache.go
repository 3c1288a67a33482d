package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/cashfake/pkg/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyCache implements cache.IdempotencyCache using Redis.
type RedisIdempotencyCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ cache.IdempotencyCache = (*RedisIdempotencyCache)(nil)

// NewRedisIdempotencyCache creates a RedisIdempotencyCache from redis.Options.
func NewRedisIdempotencyCache(opt *redis.Options, prefix string, logger *slog.Logger) *RedisIdempotencyCache {
	return &RedisIdempotencyCache{client: redis.NewClient(opt), prefix: prefix, logger: logger}
}

// NewRedisIdempotencyCacheFromURL parses a redis:// URL.
func NewRedisIdempotencyCacheFromURL(url, prefix string, logger *slog.Logger) (*RedisIdempotencyCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisIdempotencyCache(opt, prefix, logger), nil
}

// Ping checks connectivity.
func (r *RedisIdempotencyCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisIdempotencyCache) Close() error {
	return r.client.Close()
}

func (r *RedisIdempotencyCache) key(ownerID uuid.UUID, key string) string {
	return r.prefix + itemKey(ownerID, key)
}

func (r *RedisIdempotencyCache) Get(ctx context.Context, ownerID uuid.UUID, key string) (*cache.Record, error) {
	val, err := r.client.Get(ctx, r.key(ownerID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Idempotency cache miss", "owner", ownerID, "key", key)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Idempotency cache get error", "key", key, "error", err)
		return nil, err
	}
	var rec cache.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		r.logger.Error("Idempotency cache unmarshal error", "key", key, "error", err)
		return nil, err
	}
	return &rec, nil
}

func (r *RedisIdempotencyCache) Set(ctx context.Context, ownerID uuid.UUID, key string, rec cache.Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(ownerID, key), data, ttl).Err(); err != nil {
		r.logger.Error("Idempotency cache set error", "key", key, "error", err)
		return err
	}
	return nil
}
