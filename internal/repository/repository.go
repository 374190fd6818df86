package repository

import (
	"context"

	"github.com/Domenick1991/flightsaga/internal/domain"
)

// FlightMutation changes a locked flight. Returning an error discards the change.
type FlightMutation func(f *domain.Flight) error

// BookingMutation changes a locked booking. Returning an error discards the change.
type BookingMutation func(b *domain.Booking) error

type FlightRepository interface {
	Create(ctx context.Context, flight *domain.Flight) error
	CreateBatch(ctx context.Context, flights []domain.Flight) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	List(ctx context.Context) ([]domain.Flight, error)
	Query(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	// Mutate runs fn against the flight inside one transaction holding the row lock
	// and stores the result. Capacity is only ever changed through Mutate.
	Mutate(ctx context.Context, id int64, fn FlightMutation) (*domain.Flight, error)
	// Delete removes the flight. onDeleted runs before the removal is committed.
	Delete(ctx context.Context, id int64, onDeleted FlightMutation) error
	Statistics(ctx context.Context) (domain.FlightStatistics, error)
}

type BookingRepository interface {
	// Create stores the booking. onCreated runs before the insert is committed.
	Create(ctx context.Context, booking *domain.Booking, onCreated BookingMutation) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	Query(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	Mutate(ctx context.Context, id int64, fn BookingMutation) (*domain.Booking, error)
	Delete(ctx context.Context, id int64, onDeleted BookingMutation) error
	DeleteByFlightID(ctx context.Context, flightID int64) (int64, error)
	Statistics(ctx context.Context) (domain.BookingStatistics, error)
}
