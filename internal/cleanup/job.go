// Package cleanup purges expired entries on a schedule.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// Config controls the purge schedule.
type Config struct {
	// Schedule is a cron spec or descriptor such as "@every 5m".
	Schedule  string
	BatchSize int
	// Timeout bounds a single run.
	Timeout time.Duration
}

// DefaultConfig returns the default purge settings.
func DefaultConfig() Config {
	return Config{
		Schedule:  "@every 5m",
		BatchSize: 500,
		Timeout:   time.Minute,
	}
}

// Job deletes expired entries from the store in batches and evicts their cache
// entries. Filter membership is never touched.
type Job struct {
	store  shortener.Repository
	cache  shortener.Cache
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
	cron   *cron.Cron
}

// NewJob creates a purge job. The schedule is validated here.
func NewJob(store shortener.Repository, cache shortener.Cache, cfg Config, logger *zap.Logger) (*Job, error) {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("cleanup schedule %q: %w", cfg.Schedule, err)
	}

	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("cleanup batch size must be positive, got %d", cfg.BatchSize)
	}

	cronLogger := cronLogger{logger.Sugar()}

	return &Job{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
		cron:   cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
	}, nil
}

// Name identifies the job within a consumer group.
func (j *Job) Name() string {
	return "cleanup"
}

// Start schedules the job. Runs stop being scheduled once ctx is done.
func (j *Job) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.cfg.Schedule, func() {
		if ctx.Err() != nil {
			return
		}

		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Error("expired entry purge failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()

	return nil
}

// Shutdown stops scheduling and waits for a running purge to finish.
func (j *Job) Shutdown() error {
	<-j.cron.Stop().Done()

	return nil
}

// RunOnce deletes every entry expired by now and returns how many were removed.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	if j.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, j.cfg.Timeout)
		defer cancel()
	}

	now := j.now()
	total := 0

	for {
		codes, err := j.store.DeleteExpired(ctx, now, j.cfg.BatchSize)
		if err != nil {
			return total, fmt.Errorf("delete expired: %w", err)
		}

		for _, code := range codes {
			if err = j.cache.Invalidate(ctx, code); err != nil {
				j.logger.Warn("cache invalidation failed for purged entry",
					zap.String("code", string(code)),
					zap.Error(err),
				)
			}
		}

		total += len(codes)

		if len(codes) < j.cfg.BatchSize {
			break
		}
	}

	if total > 0 {
		j.logger.Info("purged expired entries", zap.Int("count", total))
	}

	return total, nil
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
