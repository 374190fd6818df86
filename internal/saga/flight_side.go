// Package saga reacts to the events each service receives from the other one.
package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Domenick1991/flightsaga/internal/domain"
	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/messaging"
	"github.com/Domenick1991/flightsaga/internal/service/flights"
)

// FlightSide turns booking events into capacity changes and answers them.
// Answers are published inside the capacity transaction.
type FlightSide struct {
	ledger    flights.Ledger
	publisher messaging.Publisher
	logger    *zap.Logger
}

func NewFlightSide(ledger flights.Ledger, publisher messaging.Publisher, logger *zap.Logger) *FlightSide {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlightSide{ledger: ledger, publisher: publisher, logger: logger}
}

func (h *FlightSide) Handle(ctx context.Context, hdr events.Header, ev events.Event) error {
	switch e := ev.(type) {
	case events.BookingCreated:
		return h.bookingCreated(ctx, hdr, e)
	case events.BookingUpdated:
		return h.bookingUpdated(ctx, hdr, e)
	case events.BookingCancelled:
		return h.bookingCancelled(ctx, e)
	case events.BookingConfirmed, events.BookingRejected, events.BookingUpdateConfirmed,
		events.BookingUpdateRejected, events.FlightCancelled:
		return fmt.Errorf("%w: %s on the flight side", messaging.ErrUnhandledKind, hdr.Kind)
	default:
		return fmt.Errorf("%w: %T", messaging.ErrUnhandledKind, ev)
	}
}

func (h *FlightSide) bookingCreated(ctx context.Context, hdr events.Header, e events.BookingCreated) error {
	outcome, err := h.ledger.Reserve(ctx, e.FlightID, e.PassengerCount, func(f *domain.Flight, outcome domain.Outcome) error {
		if outcome == domain.OutcomeConfirmed {
			return h.reply(ctx, hdr, events.BookingConfirmed{BookingID: e.BookingID, FlightID: f.ID})
		}
		return h.reply(ctx, hdr, events.BookingRejected{BookingID: e.BookingID})
	})
	if err != nil {
		return fmt.Errorf("reserve %d seats on flight %d for booking %d: %w", e.PassengerCount, e.FlightID, e.BookingID, err)
	}
	h.logger.Info("reservation settled",
		zap.Int64("booking_id", e.BookingID),
		zap.Int64("flight_id", e.FlightID),
		zap.String("outcome", string(outcome)))
	return nil
}

func (h *FlightSide) bookingUpdated(ctx context.Context, hdr events.Header, e events.BookingUpdated) error {
	outcome, err := h.ledger.AdjustForUpdate(ctx, e.FlightID, e.CurrentCount, e.NewCount, func(f *domain.Flight, outcome domain.Outcome) error {
		if outcome == domain.OutcomeConfirmed {
			return h.reply(ctx, hdr, events.BookingUpdateConfirmed{BookingID: e.BookingID, FlightID: f.ID})
		}
		return h.reply(ctx, hdr, events.BookingUpdateRejected{
			BookingID:    e.BookingID,
			FlightID:     f.ID,
			CurrentCount: e.CurrentCount,
			NewCount:     e.NewCount,
		})
	})
	if err != nil {
		return fmt.Errorf("adjust flight %d for booking %d: %w", e.FlightID, e.BookingID, err)
	}
	h.logger.Info("update settled",
		zap.Int64("booking_id", e.BookingID),
		zap.Int("from", e.CurrentCount),
		zap.Int("to", e.NewCount),
		zap.String("outcome", string(outcome)))
	return nil
}

func (h *FlightSide) bookingCancelled(ctx context.Context, e events.BookingCancelled) error {
	if err := h.ledger.Release(ctx, e.FlightID, e.PassengerCount); err != nil {
		return fmt.Errorf("release %d seats on flight %d: %w", e.PassengerCount, e.FlightID, err)
	}
	return nil
}

func (h *FlightSide) reply(ctx context.Context, cause events.Header, ev events.Event) error {
	env, err := events.NewCausedBy(cause, ev)
	if err != nil {
		return err
	}
	return messaging.Send(ctx, h.publisher, env)
}

var _ messaging.Handler = (*FlightSide)(nil)
