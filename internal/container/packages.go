package container

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/bloom"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/migrations"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

const startupTimeout = 10 * time.Second

// Redis owns the shared Redis client.
type Redis struct {
	Client *redis.Client
}

// Shutdown closes the client.
func (r *Redis) Shutdown() error {
	return r.Client.Close()
}

// Postgres owns the shared connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// Shutdown closes the pool.
func (p *Postgres) Shutdown() error {
	p.Pool.Close()

	return nil
}

func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "console" {
			return zap.NewDevelopment()
		}

		return zap.NewProduction()
	})
}

func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)

		client := redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})

		return &Redis{Client: client}, nil
	})
}

func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.Migrate {
			if err := runMigrations(opts.PostgresDSN, logger, false); err != nil {
				return nil, err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		if err = pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		return &Postgres{Pool: pool}, nil
	})
}

// Migrate applies the embedded schema migrations, or rolls them all back when down is set.
func Migrate(i *do.Injector, down bool) error {
	opts := do.MustInvoke[*Options](i)
	logger := do.MustInvoke[*zap.Logger](i)

	return runMigrations(opts.PostgresDSN, logger, down)
}

func runMigrations(dsn string, logger *zap.Logger, down bool) error {
	m, err := migrations.New(dsn, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("failed to close migrator", zap.Error(err))
		}
	}()

	if down {
		return m.Down()
	}

	return m.Up()
}

func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Storage {
		case BackendPostgres:
			pg, err := do.Invoke[*Postgres](i)
			if err != nil {
				return nil, err
			}

			return store.NewPostgresStore(pg.Pool), nil
		case BackendMemory:
			return store.NewMemoryStore(), nil
		default:
			return nil, fmt.Errorf("unknown storage backend %q", opts.Storage)
		}
	})
}

func CachePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Cache, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Cache {
		case BackendRedis:
			return store.NewRedisCache(do.MustInvoke[*Redis](i).Client), nil
		case BackendMemory:
			return store.NewMemoryCache(), nil
		default:
			return nil, fmt.Errorf("unknown cache backend %q", opts.Cache)
		}
	})
}

// FilterPackage provides the existence filter, reserved before first use.
// A failed reservation fails the invocation.
func FilterPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Filter, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		params, err := opts.FilterParams()
		if err != nil {
			return nil, err
		}

		var filter shortener.Filter

		switch opts.Filter {
		case BackendRedisBloom:
			filter, err = bloom.NewRedisBloom(do.MustInvoke[*Redis](i).Client, opts.FilterKey, params)
		case BackendBitmap:
			filter, err = bloom.NewBitmap(do.MustInvoke[*Redis](i).Client, opts.FilterKey, params)
		case BackendMemory:
			filter, err = bloom.NewMemory(params)
		default:
			err = fmt.Errorf("unknown filter backend %q", opts.Filter)
		}

		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		if err = filter.Reserve(ctx); err != nil {
			return nil, fmt.Errorf("reserve existence filter: %w", err)
		}

		logger.Info("existence filter ready",
			zap.String("backend", opts.Filter),
			zap.Uint64("capacity", params.Capacity),
			zap.Float64("errorRate", params.ErrorRate),
		)

		return filter, nil
	})
}

func PublisherPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*Redis](i).Client
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := messaging.NewRedisStreamPublisher(client, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (shortener.Events, error) {
		if !do.MustInvoke[*Options](i).Events {
			return shortener.Events{}, nil
		}

		group, err := do.Invoke[*messaging.PublisherGroup](i)
		if err != nil {
			return shortener.Events{}, err
		}

		publisher := group.Publisher()

		return shortener.Events{
			Created: messaging.NewPublishFunc[shortener.EntryCreated](publisher, shortener.TopicEntryCreated),
			Updated: messaging.NewPublishFunc[shortener.EntryUpdated](publisher, shortener.TopicEntryUpdated),
			Deleted: messaging.NewPublishFunc[shortener.EntryDeleted](publisher, shortener.TopicEntryDeleted),
		}, nil
	})
}

func ServicePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		generateCode, err := shortener.NewCodeGenerator(opts.CodeLength)
		if err != nil {
			return nil, err
		}

		repo, err := do.Invoke[shortener.Repository](i)
		if err != nil {
			return nil, err
		}

		filter, err := do.Invoke[shortener.Filter](i)
		if err != nil {
			return nil, err
		}

		events, err := do.Invoke[shortener.Events](i)
		if err != nil {
			return nil, err
		}

		deps := shortener.Dependencies{
			Store:        repo,
			Cache:        do.MustInvoke[shortener.Cache](i),
			Filter:       filter,
			GenerateCode: generateCode,
			Events:       events,
		}

		return shortener.NewService(deps, opts.ServiceConfig(), do.MustInvoke[*zap.Logger](i)), nil
	})
}

// HTTPPackage provides the router and the API. Invoking huma.API registers the routes.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		svc, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("Shortlink", "1.0.0"))
		api.UseMiddleware(middleware.RequestLog(logger))

		handlers.RegisterRoutes(api, handlers.NewURLHandler(svc, opts.PublicURL(), logger))
		health.RegisterRoutes(api, health.NewHandler(redisChecker(i, opts), postgresChecker(i, opts)))

		return api, nil
	})
}

func redisChecker(i *do.Injector, opts *Options) health.Checker {
	if !opts.usesRedis() {
		return nil
	}

	return health.NewRedisChecker(do.MustInvoke[*Redis](i).Client)
}

func postgresChecker(i *do.Injector, opts *Options) health.Checker {
	if opts.Storage != BackendPostgres {
		return nil
	}

	return health.NewPostgresChecker(do.MustInvoke[*Postgres](i).Pool)
}
