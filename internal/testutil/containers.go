// Package testutil starts throwaway Redis and PostgreSQL containers for
// integration tests. Tests are skipped when Docker is not reachable.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/migrations"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// RedisImage ships the RedisBloom module so BF.* commands are available.
const RedisImage = "redis/redis-stack-server:7.2.0-v10"

const postgresImage = "postgres:16-alpine"

// StartRedis runs a Redis container and returns a connected client.
func StartRedis(t testing.TB) *redis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, RedisImage)
	if err != nil {
		t.Skipf("redis container not available: %v", err)
	}

	t.Cleanup(func() { _ = tc.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        endpoint,
		DialTimeout: 5 * time.Second,
	})

	t.Cleanup(func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err = client.Ping(pingCtx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	return client
}

// StartPostgres runs a PostgreSQL container, applies the schema migrations and
// returns a pool together with its connection string.
func StartPostgres(t testing.TB) (*pgxpool.Pool, string) {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase("shortlink"),
		tcpostgres.WithUsername("shortlink"),
		tcpostgres.WithPassword("shortlink"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container not available: %v", err)
	}

	t.Cleanup(func() { _ = tc.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	migrator, err := migrations.New(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("create migrator: %v", err)
	}

	defer func() { _ = migrator.Close() }()

	if err = migrator.Up(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}

	t.Cleanup(pool.Close)

	return pool, dsn
}
