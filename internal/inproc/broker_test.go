package inproc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/messaging"
)

type recorder struct {
	mu       sync.Mutex
	seen     []events.Event
	failures map[events.Kind]error
	calls    map[string]int
}

func newRecorder() *recorder {
	return &recorder{failures: map[events.Kind]error{}, calls: map[string]int{}}
}

func (r *recorder) Handle(_ context.Context, h events.Header, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[h.ID]++
	if err, ok := r.failures[h.Kind]; ok && r.calls[h.ID] == 1 {
		return err
	}
	r.seen = append(r.seen, ev)
	return nil
}

func (r *recorder) events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.seen...)
}

func publish(t *testing.T, b *Broker, ev events.Event) events.Envelope {
	t.Helper()
	env, err := events.New(ev)
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), env))
	return env
}

func TestBroker_RoutesByBinding(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := NewBroker(nil)
	defer broker.Close()

	bookingEvents := newRecorder()
	flightEvents := newRecorder()
	_, err := broker.Subscribe(ctx, messaging.Queue{Name: "flights", Bindings: []string{"booking.#"}}, messaging.NewRouter(bookingEvents, nil))
	require.NoError(t, err)
	_, err = broker.Subscribe(ctx, messaging.Queue{Name: "bookings", Bindings: []string{"flight.#"}}, messaging.NewRouter(flightEvents, nil))
	require.NoError(t, err)

	publish(t, broker, events.BookingCreated{BookingID: 1, FlightID: 2, PassengerCount: 3})
	publish(t, broker, events.FlightCancelled{FlightID: 2})

	require.Eventually(t, func() bool {
		return len(bookingEvents.events()) == 1 && len(flightEvents.events()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, events.BookingCreated{BookingID: 1, FlightID: 2, PassengerCount: 3}, bookingEvents.events()[0])
	assert.Equal(t, events.FlightCancelled{FlightID: 2}, flightEvents.events()[0])
}

func TestBroker_RequeueRedelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := NewBroker(nil, WithRedeliveryDelay(time.Millisecond))
	defer broker.Close()

	handler := newRecorder()
	handler.failures[events.KindBookingCreated] = fmt.Errorf("store unavailable: %w", messaging.ErrRequeue)
	_, err := broker.Subscribe(ctx, messaging.Queue{Name: "flights", Bindings: []string{"booking.*"}}, messaging.NewRouter(handler, nil))
	require.NoError(t, err)

	env := publish(t, broker, events.BookingCreated{BookingID: 1, FlightID: 2, PassengerCount: 3})

	require.Eventually(t, func() bool { return len(handler.events()) == 1 }, time.Second, 5*time.Millisecond)
	handler.mu.Lock()
	assert.Equal(t, 2, handler.calls[env.Header.ID])
	handler.mu.Unlock()
	assert.Empty(t, broker.DeadLetters())
}

func TestBroker_DiscardGoesToDeadLetter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := NewBroker(nil)
	defer broker.Close()

	handler := newRecorder()
	handler.failures[events.KindBookingCancelled] = errors.New("flight not found")
	_, err := broker.Subscribe(ctx, messaging.Queue{Name: "flights", Bindings: []string{"booking.#"}}, messaging.NewRouter(handler, nil))
	require.NoError(t, err)

	publish(t, broker, events.BookingCancelled{BookingID: 1, FlightID: 99, PassengerCount: 1})

	require.Eventually(t, func() bool { return len(broker.DeadLetters()) == 1 }, time.Second, 5*time.Millisecond)
	dead := broker.DeadLetters()[0]
	assert.Equal(t, "flights", dead.Delivery.Queue)
	assert.Equal(t, "booking.cancelled", dead.Delivery.RoutingKey)
	assert.Empty(t, handler.events())
}
