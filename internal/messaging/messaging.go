package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightsaga/internal/events"
)

var (
	// ErrRequeue marks a handler failure worth another delivery attempt.
	ErrRequeue = errors.New("requeue")
	// ErrPublish wraps outbound publish failures. The local change that triggered the
	// publish has been rolled back, so the inbound event is safe to redeliver.
	ErrPublish = fmt.Errorf("publish failed: %w", ErrRequeue)
	// ErrUnhandledKind is returned by handlers for kinds their queue should never carry.
	ErrUnhandledKind = errors.New("unhandled event kind")

	errHandlerPanic = errors.New("handler panicked")
)

// Result settles a delivery.
type Result int

const (
	Ack Result = iota
	NackDiscard
	NackRequeue
)

func (r Result) String() string {
	switch r {
	case Ack:
		return "ack"
	case NackDiscard:
		return "nack_discard"
	case NackRequeue:
		return "nack_requeue"
	default:
		return "unknown"
	}
}

type Delivery struct {
	Queue      string
	RoutingKey string
	Body       []byte
	// Attempt starts at 1 and grows with every redelivery of the same message.
	Attempt int
}

type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// DeadLetterSink keeps discarded deliveries for inspection. They are never redelivered.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, d Delivery, reason string) error
}

type Handler interface {
	Handle(ctx context.Context, h events.Header, ev events.Event) error
}

type HandlerFunc func(ctx context.Context, h events.Header, ev events.Event) error

func (f HandlerFunc) Handle(ctx context.Context, h events.Header, ev events.Event) error {
	return f(ctx, h, ev)
}

// Queue is a named subscription bound to routing key patterns.
type Queue struct {
	Name     string
	Bindings []string
	Workers  int
}

func (q Queue) Topics() []string {
	return events.Resolve(q.Bindings)
}

// Consumer runs a queue through a router until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, q Queue, r *Router) error
}

// Send publishes env and marks a failure with ErrPublish.
func Send(ctx context.Context, p Publisher, env events.Envelope) error {
	if err := p.Publish(ctx, env); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrPublish, env.Header.Kind, env.Header.ID, err)
	}
	return nil
}
