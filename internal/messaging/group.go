package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable is a named background worker that can be started and shut down.
type Runnable interface {
	Name() string
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs consumers and other workers under one lifecycle and owns the
// subscriber they share.
type ConsumerGroup struct {
	workers    []Runnable
	subscriber message.Subscriber
	logger     *zap.Logger
}

// NewConsumerGroup creates a new consumer group.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers a worker with the group.
func (g *ConsumerGroup) Add(worker Runnable) {
	g.workers = append(g.workers, worker)
}

// Start starts the workers in registration order. If one fails, the ones already
// started are shut down in reverse order.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, worker := range g.workers {
		if err := worker.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.workers[j].Shutdown()
			}

			return fmt.Errorf("start %s: %w", worker.Name(), err)
		}

		g.logger.Debug("worker started", zap.String("worker", worker.Name()))
	}

	g.logger.Info("consumer group started", zap.Int("count", len(g.workers)))

	return nil
}

// Shutdown stops every worker in reverse order, then closes the subscriber.
// All errors are joined.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group")

	var errs []error

	for i := len(g.workers) - 1; i >= 0; i-- {
		if err := g.workers[i].Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", g.workers[i].Name(), err))
		}
	}

	if err := g.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}

	return errors.Join(errs...)
}
