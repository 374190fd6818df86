package booking

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/flightsaga/internal/csvio"
	"github.com/Domenick1991/flightsaga/internal/domain"
	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/messaging"
	"github.com/Domenick1991/flightsaga/internal/repository"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	Query(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, id int64, passengerCount int) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64) error
	Export(ctx context.Context, w io.Writer) error
	Statistics(ctx context.Context) (domain.BookingStatistics, error)
}

// Transitions are the state changes driven by flight side events.
type Transitions interface {
	Confirm(ctx context.Context, bookingID, flightID int64) error
	Reject(ctx context.Context, bookingID int64) error
	ConfirmUpdate(ctx context.Context, bookingID, flightID int64) error
	RejectUpdate(ctx context.Context, bookingID, flightID int64, currentCount, newCount int) error
	CancelFlight(ctx context.Context, flightID int64) (int64, error)
}

type CreateBookingInput struct {
	FlightID       int64 `json:"flight_id"`
	PassengerCount int   `json:"passenger_count"`
}

type BookingService struct {
	bookings  repository.BookingRepository
	publisher messaging.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(bookings repository.BookingRepository, publisher messaging.Publisher, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		bookings:  bookings,
		publisher: publisher,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking stores a PENDING booking and emits BookingCreated. Nothing is
// stored if the event cannot be published.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	booking, err := domain.NewBooking(input.FlightID, input.PassengerCount, s.now())
	if err != nil {
		return nil, err
	}

	err = s.bookings.Create(ctx, booking, func(b *domain.Booking) error {
		return s.emit(ctx, events.BookingCreated{
			BookingID:      b.ID,
			FlightID:       b.FlightID,
			PassengerCount: b.PassengerCount,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("flight_id", booking.FlightID),
		zap.Int("passengers", booking.PassengerCount))
	return booking, nil
}

func (s *BookingService) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) List(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.List(ctx)
}

func (s *BookingService) Query(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	return s.bookings.Query(ctx, filter)
}

// UpdateBooking asks the flight side for a new passenger count. The confirmed
// count stays in place until BookingUpdateConfirmed or BookingUpdateRejected.
func (s *BookingService) UpdateBooking(ctx context.Context, id int64, passengerCount int) (*domain.Booking, error) {
	if err := domain.ValidatePassengerCount(passengerCount); err != nil {
		return nil, err
	}
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusConfirmed && current.PassengerCount == passengerCount {
		return current, nil
	}

	return s.bookings.Mutate(ctx, id, func(b *domain.Booking) error {
		confirmed := b.PassengerCount
		if err := b.RequestUpdate(passengerCount, s.now()); err != nil {
			return err
		}
		return s.emit(ctx, events.BookingUpdated{
			BookingID:    b.ID,
			FlightID:     b.FlightID,
			CurrentCount: confirmed,
			NewCount:     passengerCount,
		})
	})
}

// CancelBooking deletes the booking and emits BookingCancelled so the flight side
// gives the seats back. No answer is expected. The event carries the confirmed
// count, so seats held for an unanswered update are not returned.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) error {
	return s.bookings.Delete(ctx, id, func(b *domain.Booking) error {
		return s.emit(ctx, events.BookingCancelled{
			BookingID:      b.ID,
			FlightID:       b.FlightID,
			PassengerCount: b.PassengerCount,
		})
	})
}

func (s *BookingService) Export(ctx context.Context, w io.Writer) error {
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return err
	}
	return csvio.WriteBookings(w, bookings)
}

func (s *BookingService) Statistics(ctx context.Context) (domain.BookingStatistics, error) {
	return s.bookings.Statistics(ctx)
}

func (s *BookingService) Confirm(ctx context.Context, bookingID, flightID int64) error {
	_, err := s.bookings.Mutate(ctx, bookingID, func(b *domain.Booking) error {
		if !b.Confirm(flightID, s.now()) {
			s.logger.Debug("booking already confirmed", zap.Int64("booking_id", bookingID))
		}
		return nil
	})
	return err
}

// Reject drops a booking the flight could not seat. A booking that is already
// gone needs nothing more.
func (s *BookingService) Reject(ctx context.Context, bookingID int64) error {
	err := s.bookings.Delete(ctx, bookingID, nil)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil
	}
	return err
}

func (s *BookingService) ConfirmUpdate(ctx context.Context, bookingID, flightID int64) error {
	_, err := s.bookings.Mutate(ctx, bookingID, func(b *domain.Booking) error {
		b.ApplyUpdate(s.now())
		b.FlightID = flightID
		return nil
	})
	return err
}

func (s *BookingService) RejectUpdate(ctx context.Context, bookingID, flightID int64, currentCount, newCount int) error {
	_, err := s.bookings.Mutate(ctx, bookingID, func(b *domain.Booking) error {
		b.RollbackUpdate(currentCount, s.now())
		return nil
	})
	if err == nil {
		s.logger.Info("booking update rejected",
			zap.Int64("booking_id", bookingID),
			zap.Int64("flight_id", flightID),
			zap.Int("kept", currentCount),
			zap.Int("requested", newCount))
	}
	return err
}

func (s *BookingService) CancelFlight(ctx context.Context, flightID int64) (int64, error) {
	n, err := s.bookings.DeleteByFlightID(ctx, flightID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("bookings removed for cancelled flight", zap.Int64("flight_id", flightID), zap.Int64("removed", n))
	return n, nil
}

func (s *BookingService) emit(ctx context.Context, ev events.Event) error {
	env, err := events.New(ev)
	if err != nil {
		return err
	}
	return messaging.Send(ctx, s.publisher, env)
}

var (
	_ BookingUseCase = (*BookingService)(nil)
	_ Transitions    = (*BookingService)(nil)
)
