package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

// RedisCache is a Redis implementation of shortener.Cache.
// Values are plain strings under "url:<code>", expired by Redis itself.
type RedisCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCache creates a new Redis-backed resolution cache.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "url:",
	}
}

func (r *RedisCache) Get(ctx context.Context, code shortener.Code) (string, error) {
	address, err := r.client.Get(ctx, r.key(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shortener.ErrCacheMiss
		}

		return "", err
	}

	return address, nil
}

// Set stores the address; a zero ttl keeps it until invalidated.
func (r *RedisCache) Set(ctx context.Context, code shortener.Code, address string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	return r.client.Set(ctx, r.key(code), address, ttl).Err()
}

func (r *RedisCache) Invalidate(ctx context.Context, code shortener.Code) error {
	return r.client.Del(ctx, r.key(code)).Err()
}

func (r *RedisCache) key(code shortener.Code) string {
	return r.prefix + string(code)
}

// Compile-time check.
var _ shortener.Cache = (*RedisCache)(nil)
