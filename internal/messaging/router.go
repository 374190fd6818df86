package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/metrics"
)

// Router decodes deliveries, hands them to a handler and decides how they settle.
type Router struct {
	handler Handler
	logger  *zap.Logger
}

func NewRouter(handler Handler, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{handler: handler, logger: logger}
}

func (r *Router) Dispatch(ctx context.Context, d Delivery) Result {
	start := time.Now()
	logger := r.logger.With(
		zap.String("queue", d.Queue),
		zap.String("routing_key", d.RoutingKey),
		zap.Int("attempt", d.Attempt),
	)

	env, err := events.Unmarshal(d.Body)
	if err != nil {
		logger.Error("drop unreadable message", zap.Error(err))
		r.observe(d.Queue, "", NackDiscard, start)
		return NackDiscard
	}
	logger = logger.With(zap.String("event_id", env.Header.ID), zap.String("kind", string(env.Header.Kind)))

	ev, err := env.Decode()
	if err != nil {
		logger.Error("drop undecodable event", zap.Error(err))
		r.observe(d.Queue, env.Header.Kind, NackDiscard, start)
		return NackDiscard
	}

	result := resultOf(ctx, r.handle(ctx, env.Header, ev, logger), logger)
	r.observe(d.Queue, env.Header.Kind, result, start)
	return result
}

// handle turns a handler panic into an error so the message is dead-lettered
// instead of taking the consumer down.
func (r *Router) handle(ctx context.Context, hdr events.Header, ev events.Event, logger *zap.Logger) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("handler panicked", zap.Any("panic", p), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", errHandlerPanic, p)
		}
	}()
	return r.handler.Handle(ctx, hdr, ev)
}

func resultOf(ctx context.Context, err error, logger *zap.Logger) Result {
	switch {
	case err == nil:
		logger.Debug("event handled")
		return Ack
	case errors.Is(err, errHandlerPanic):
		return NackDiscard
	case errors.Is(err, ErrRequeue), ctx.Err() != nil, errors.Is(err, context.Canceled):
		logger.Warn("event requeued", zap.Error(err))
		return NackRequeue
	default:
		logger.Error("event discarded", zap.Error(err))
		return NackDiscard
	}
}

func (r *Router) observe(queue string, kind events.Kind, result Result, start time.Time) {
	metrics.MessagesHandled.WithLabelValues(queue, string(kind), result.String()).Inc()
	metrics.MessageDuration.WithLabelValues(queue, string(kind)).Observe(time.Since(start).Seconds())
}
