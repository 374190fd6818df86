package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/messaging"
	"github.com/Domenick1991/flightsaga/internal/service/booking"
)

// BookingSide applies the flight side's answers to the booking state machine.
type BookingSide struct {
	bookings booking.Transitions
	logger   *zap.Logger
}

func NewBookingSide(bookings booking.Transitions, logger *zap.Logger) *BookingSide {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingSide{bookings: bookings, logger: logger}
}

func (h *BookingSide) Handle(ctx context.Context, hdr events.Header, ev events.Event) error {
	var err error
	switch e := ev.(type) {
	case events.BookingConfirmed:
		err = h.bookings.Confirm(ctx, e.BookingID, e.FlightID)
	case events.BookingRejected:
		err = h.bookings.Reject(ctx, e.BookingID)
	case events.BookingUpdateConfirmed:
		err = h.bookings.ConfirmUpdate(ctx, e.BookingID, e.FlightID)
	case events.BookingUpdateRejected:
		err = h.bookings.RejectUpdate(ctx, e.BookingID, e.FlightID, e.CurrentCount, e.NewCount)
	case events.FlightCancelled:
		_, err = h.bookings.CancelFlight(ctx, e.FlightID)
	case events.BookingCreated, events.BookingUpdated, events.BookingCancelled:
		return fmt.Errorf("%w: %s on the booking side", messaging.ErrUnhandledKind, hdr.Kind)
	default:
		return fmt.Errorf("%w: %T", messaging.ErrUnhandledKind, ev)
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", hdr.Kind, err)
	}
	return nil
}

var _ messaging.Handler = (*BookingSide)(nil)
