//go:build integration

package bloom_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/serroba/shortlink/internal/bloom"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisFiltersIntegration(t *testing.T) {
	ctx := context.Background()
	client := testutil.StartRedis(t)
	params := bloom.Params{Capacity: 10_000, ErrorRate: 0.01}

	redisBloom, err := bloom.NewRedisBloom(client, "test:bf", params)
	require.NoError(t, err)

	bitmap, err := bloom.NewBitmap(client, "test:bitmap", params)
	require.NoError(t, err)

	filters := map[string]shortener.Filter{
		"redisbloom": redisBloom,
		"bitmap":     bitmap,
	}

	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, f.Reserve(ctx))
			require.NoError(t, f.Reserve(ctx), "reserve is idempotent")

			for i := range 1000 {
				require.NoError(t, f.Add(ctx, shortener.Code(fmt.Sprintf("member-%d", i))))
			}

			for i := range 1000 {
				ok, err := f.MightContain(ctx, shortener.Code(fmt.Sprintf("member-%d", i)))
				require.NoError(t, err)
				assert.True(t, ok)
			}

			falsePositives := 0

			for i := range 1000 {
				ok, err := f.MightContain(ctx, shortener.Code(fmt.Sprintf("stranger-%d", i)))
				require.NoError(t, err)

				if ok {
					falsePositives++
				}
			}

			assert.Less(t, falsePositives, 50)
		})
	}

	t.Run("reserve keeps existing members", func(t *testing.T) {
		require.NoError(t, redisBloom.Reserve(ctx))

		ok, err := redisBloom.MightContain(ctx, "member-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("bitmap refuses a different sizing", func(t *testing.T) {
		same, err := bloom.NewBitmap(client, "test:bitmap", params)
		require.NoError(t, err)
		require.NoError(t, same.Reserve(ctx))

		resized, err := bloom.NewBitmap(client, "test:bitmap", bloom.Params{Capacity: 1_000_000, ErrorRate: 0.001})
		require.NoError(t, err)

		require.ErrorIs(t, resized.Reserve(ctx), bloom.ErrParamsMismatch)

		stored, err := client.HGetAll(ctx, "test:bitmap:params").Result()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(params.Bits()), stored["bits"])
		assert.Equal(t, fmt.Sprint(params.Hashes()), stored["hashes"])

		ok, err := same.MightContain(ctx, "member-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
