// Package lifecycle reacts to entry lifecycle events published by the
// resolution service.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// DefaultInvalidationDelay is how long after a write the second cache
// invalidation runs.
const DefaultInvalidationDelay = 500 * time.Millisecond

// Handlers repair the filter and cache after writes.
//
// A read racing an update or delete can put the old address back into the cache
// between the store write and the service's own invalidation. Invalidating again
// once the delay has passed evicts it.
type Handlers struct {
	filter shortener.Filter
	cache  shortener.Cache
	delay  time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewHandlers creates the lifecycle handlers.
func NewHandlers(filter shortener.Filter, cache shortener.Cache, delay time.Duration, logger *zap.Logger) *Handlers {
	return &Handlers{
		filter: filter,
		cache:  cache,
		delay:  delay,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the clock used to schedule invalidations.
func (h *Handlers) WithClock(now func() time.Time) *Handlers {
	h.now = now

	return h
}

// EntryCreated re-adds the code to the filter. Adding is idempotent, so this
// repairs a best-effort add that failed during create.
func (h *Handlers) EntryCreated(ctx context.Context, event *shortener.EntryCreated) error {
	if err := h.filter.Add(ctx, shortener.Code(event.Code)); err != nil {
		return fmt.Errorf("add %s to filter: %w", event.Code, err)
	}

	return nil
}

// EntryUpdated invalidates the cached address once the delay has passed since the update.
func (h *Handlers) EntryUpdated(ctx context.Context, event *shortener.EntryUpdated) error {
	return h.invalidateAfter(ctx, shortener.Code(event.Code), event.UpdatedAt)
}

// EntryDeleted invalidates the cached address once the delay has passed since the delete.
func (h *Handlers) EntryDeleted(ctx context.Context, event *shortener.EntryDeleted) error {
	return h.invalidateAfter(ctx, shortener.Code(event.Code), event.DeletedAt)
}

func (h *Handlers) invalidateAfter(ctx context.Context, code shortener.Code, at time.Time) error {
	if wait := at.Add(h.delay).Sub(h.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := h.cache.Invalidate(ctx, code); err != nil {
		return fmt.Errorf("invalidate %s: %w", code, err)
	}

	h.logger.Debug("cache invalidated after write", zap.String("code", string(code)))

	return nil
}

// Consumers returns one consumer per lifecycle topic, all reading from subscriber.
func Consumers(subscriber message.Subscriber, h *Handlers, logger *zap.Logger) []messaging.Runnable {
	return []messaging.Runnable{
		messaging.NewConsumer(subscriber, shortener.TopicEntryCreated, h.EntryCreated, logger),
		messaging.NewConsumer(subscriber, shortener.TopicEntryUpdated, h.EntryUpdated, logger),
		messaging.NewConsumer(subscriber, shortener.TopicEntryDeleted, h.EntryDeleted, logger),
	}
}
