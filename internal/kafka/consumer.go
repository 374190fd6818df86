package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Domenick1991/flightsaga/internal/messaging"
)

const commitTimeout = 5 * time.Second

// Consumer runs a queue as a consumer group named after it. Offsets are committed
// only once a message has been acked or dead-lettered.
type Consumer struct {
	brokers         []string
	deadLetters     messaging.DeadLetterSink
	redeliveryDelay time.Duration
	logger          *zap.Logger
}

func NewConsumer(brokers []string, deadLetters messaging.DeadLetterSink, redeliveryDelay time.Duration, logger *zap.Logger) *Consumer {
	return &Consumer{
		brokers:         brokers,
		deadLetters:     deadLetters,
		redeliveryDelay: redeliveryDelay,
		logger:          logger,
	}
}

func (c *Consumer) Consume(ctx context.Context, q messaging.Queue, r *messaging.Router) error {
	topics := q.Topics()
	if len(topics) == 0 {
		return fmt.Errorf("queue %s binds no known routing keys: %v", q.Name, q.Bindings)
	}

	g, gctx := errgroup.WithContext(ctx)
	for worker := 0; worker < max(q.Workers, 1); worker++ {
		reader := kafka.NewReader(readerConfig(c.brokers, q.Name, topics))
		logger := c.logger.With(zap.String("queue", q.Name), zap.Int("worker", worker))
		g.Go(func() error {
			defer reader.Close()
			return c.run(gctx, reader, q.Name, r, logger)
		})
	}
	c.logger.Info("queue consuming", zap.String("queue", q.Name), zap.Strings("topics", topics), zap.Int("workers", q.Workers))
	return g.Wait()
}

func readerConfig(brokers []string, group string, topics []string) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           group,
		GroupTopics:       topics,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		StartOffset:       kafka.FirstOffset,
	}
}

func (c *Consumer) run(ctx context.Context, reader *kafka.Reader, queue string, r *messaging.Router, logger *zap.Logger) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("consumer stopped")
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", queue, err)
		}

		if !c.settle(ctx, queue, msg, r, logger) {
			return nil
		}
		if err := commit(ctx, reader, msg); err != nil {
			return fmt.Errorf("commit %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
	}
}

// settle dispatches msg until it is acked or dead-lettered. It returns false when
// ctx ends first; the message then stays uncommitted and is redelivered later.
func (c *Consumer) settle(ctx context.Context, queue string, msg kafka.Message, r *messaging.Router, logger *zap.Logger) bool {
	for attempt := 1; ; attempt++ {
		d := messaging.Delivery{Queue: queue, RoutingKey: msg.Topic, Body: msg.Value, Attempt: attempt}

		switch r.Dispatch(ctx, d) {
		case messaging.Ack:
			return true
		case messaging.NackDiscard:
			err := c.deadLetters.DeadLetter(ctx, d, "handler discarded the message")
			if err == nil {
				return true
			}
			logger.Error("dead-letter failed, retrying", zap.Int64("offset", msg.Offset), zap.Error(err))
		case messaging.NackRequeue:
		}

		select {
		case <-time.After(c.redeliveryDelay):
		case <-ctx.Done():
			return false
		}
	}
}

func commit(ctx context.Context, reader *kafka.Reader, msg kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	return reader.CommitMessages(ctx, msg)
}

var _ messaging.Consumer = (*Consumer)(nil)
