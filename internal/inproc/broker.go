// Package inproc runs the saga transport inside one process on watermill's
// go-channel pub/sub. It backs the standalone binary and the saga tests.
package inproc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/messaging"
)

const (
	metadataRoutingKey = "routing_key"
	metadataQueue      = "queue"
	metadataReason     = "reason"
)

// DeadLetter is a discarded delivery kept by the broker.
type DeadLetter struct {
	Delivery messaging.Delivery
	Reason   string
}

type Broker struct {
	pubsub          *gochannel.GoChannel
	logger          *zap.Logger
	deadLetterTopic string
	redeliveryDelay time.Duration

	mu          sync.Mutex
	deadLetters []DeadLetter
}

type Option func(*Broker)

func WithRedeliveryDelay(d time.Duration) Option {
	return func(b *Broker) {
		b.redeliveryDelay = d
	}
}

func WithDeadLetterTopic(topic string) Option {
	return func(b *Broker) {
		b.deadLetterTopic = topic
	}
}

func NewBroker(logger *zap.Logger, opts ...Option) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Broker{
		logger:          logger,
		deadLetterTopic: "saga.dead-letter",
		redeliveryDelay: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pubsub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: false,
	}, NewLoggerAdapter(logger.Named("watermill")))
	return b
}

func (b *Broker) Publish(_ context.Context, env events.Envelope) error {
	body, err := events.Marshal(env)
	if err != nil {
		return err
	}
	msg := message.NewMessage(env.Header.ID, body)
	msg.Metadata.Set(metadataRoutingKey, env.RoutingKey())
	if err := b.pubsub.Publish(env.RoutingKey(), msg); err != nil {
		return fmt.Errorf("publish %s: %w", env.RoutingKey(), err)
	}
	return nil
}

func (b *Broker) DeadLetter(_ context.Context, d messaging.Delivery, reason string) error {
	b.mu.Lock()
	b.deadLetters = append(b.deadLetters, DeadLetter{Delivery: d, Reason: reason})
	b.mu.Unlock()

	msg := message.NewMessage(fmt.Sprintf("%s-%d", d.Queue, time.Now().UnixNano()), d.Body)
	msg.Metadata.Set(metadataRoutingKey, d.RoutingKey)
	msg.Metadata.Set(metadataQueue, d.Queue)
	msg.Metadata.Set(metadataReason, reason)
	return b.pubsub.Publish(b.deadLetterTopic, msg)
}

// DeadLetters returns what has been discarded so far.
func (b *Broker) DeadLetters() []DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DeadLetter(nil), b.deadLetters...)
}

// Subscribe attaches the queue to every topic its bindings resolve to and returns
// once the subscriptions exist. Messages are dispatched in background goroutines
// until ctx is done; wait reports how they ended.
//
// A go-channel subscription hands out one message at a time, so each topic of a
// queue is processed serially whatever the configured worker count.
func (b *Broker) Subscribe(ctx context.Context, q messaging.Queue, r *messaging.Router) (wait func() error, err error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range q.Topics() {
		topic := topic
		msgs, err := b.pubsub.Subscribe(gctx, topic)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s to %s: %w", q.Name, topic, err)
		}
		g.Go(func() error {
			b.drain(gctx, q.Name, topic, msgs, r)
			return nil
		})
	}
	b.logger.Info("queue subscribed", zap.String("queue", q.Name), zap.Strings("topics", q.Topics()))
	return g.Wait, nil
}

func (b *Broker) Consume(ctx context.Context, q messaging.Queue, r *messaging.Router) error {
	wait, err := b.Subscribe(ctx, q, r)
	if err != nil {
		return err
	}
	return wait()
}

func (b *Broker) drain(ctx context.Context, queue, topic string, msgs <-chan *message.Message, r *messaging.Router) {
	attempts := make(map[string]int)
	for msg := range msgs {
		attempts[msg.UUID]++
		d := messaging.Delivery{
			Queue:      queue,
			RoutingKey: topic,
			Body:       msg.Payload,
			Attempt:    attempts[msg.UUID],
		}

		switch r.Dispatch(ctx, d) {
		case messaging.Ack:
			delete(attempts, msg.UUID)
			msg.Ack()
		case messaging.NackDiscard:
			delete(attempts, msg.UUID)
			if err := b.DeadLetter(ctx, d, "handler discarded the message"); err != nil {
				b.logger.Error("dead-letter", zap.String("queue", queue), zap.Error(err))
			}
			msg.Ack()
		case messaging.NackRequeue:
			select {
			case <-time.After(b.redeliveryDelay):
			case <-ctx.Done():
			}
			msg.Nack()
		}
	}
}

func (b *Broker) Close() error {
	return b.pubsub.Close()
}

var (
	_ messaging.Publisher      = (*Broker)(nil)
	_ messaging.DeadLetterSink = (*Broker)(nil)
	_ messaging.Consumer       = (*Broker)(nil)
)
