package bloom

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

// RedisBloom is a filter backed by the RedisBloom module (BF.* commands).
type RedisBloom struct {
	client redis.Cmdable
	key    string
	params Params
}

// NewRedisBloom creates a RedisBloom filter stored under key.
func NewRedisBloom(client redis.Cmdable, key string, params Params) (*RedisBloom, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &RedisBloom{client: client, key: key, params: params}, nil
}

// Reserve issues BF.RESERVE; an existing filter is left as is.
func (f *RedisBloom) Reserve(ctx context.Context) error {
	err := f.client.BFReserve(ctx, f.key, f.params.ErrorRate, int64(f.params.Capacity)).Err()
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "exists") {
		return fmt.Errorf("reserve filter %s: %w", f.key, err)
	}

	return nil
}

func (f *RedisBloom) Add(ctx context.Context, code shortener.Code) error {
	return f.client.BFAdd(ctx, f.key, string(code)).Err()
}

func (f *RedisBloom) MightContain(ctx context.Context, code shortener.Code) (bool, error) {
	return f.client.BFExists(ctx, f.key, string(code)).Result()
}

var _ shortener.Filter = (*RedisBloom)(nil)
