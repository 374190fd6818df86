package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/messaging"
	"github.com/Domenick1991/flightsaga/internal/metrics"
)

// ProcessedStore tracks events per consumer in two stages: a short lease while a
// handler runs, then a durable mark once it succeeded. A lease left behind by a
// crashed process expires on its own.
type ProcessedStore interface {
	Done(ctx context.Context, consumer, eventID string) (bool, error)
	Acquire(ctx context.Context, consumer, eventID string) (bool, error)
	Complete(ctx context.Context, consumer, eventID string) error
	Release(ctx context.Context, consumer, eventID string) error
}

// Deduplicate skips events next already handled successfully for consumer.
// An event leased by another attempt is requeued rather than acked, so nothing is
// dropped when that attempt dies halfway.
func Deduplicate(store ProcessedStore, consumer string, next messaging.Handler, logger *zap.Logger) messaging.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return messaging.HandlerFunc(func(ctx context.Context, hdr events.Header, ev events.Event) error {
		logger := logger.With(zap.String("consumer", consumer), zap.String("event_id", hdr.ID))

		done, err := store.Done(ctx, consumer, hdr.ID)
		if err != nil {
			return fmt.Errorf("%w: %w", messaging.ErrRequeue, err)
		}
		if done {
			metrics.Duplicates.WithLabelValues(consumer).Inc()
			logger.Info("duplicate event skipped")
			return nil
		}

		acquired, err := store.Acquire(ctx, consumer, hdr.ID)
		if err != nil {
			return fmt.Errorf("%w: %w", messaging.ErrRequeue, err)
		}
		if !acquired {
			return fmt.Errorf("%w: event %s is being handled by another attempt", messaging.ErrRequeue, hdr.ID)
		}

		completed := false
		defer func() {
			if completed {
				return
			}
			if relErr := store.Release(context.WithoutCancel(ctx), consumer, hdr.ID); relErr != nil {
				logger.Error("release lease", zap.Error(relErr))
			}
		}()

		if err := next.Handle(ctx, hdr, ev); err != nil {
			return err
		}
		completed = true
		if err := store.Complete(context.WithoutCancel(ctx), consumer, hdr.ID); err != nil {
			// The work is committed; the lease expires and a redelivery may run it again.
			logger.Warn("mark event processed", zap.Error(err))
		}
		return nil
	})
}
