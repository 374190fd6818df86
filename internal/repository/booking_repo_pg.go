package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/flightsaga/internal/domain"
)

const bookingColumns = `id, flight_id, passenger_count, requested_passenger_count, status, created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking, onCreated BookingMutation) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `INSERT INTO bookings (flight_id, passenger_count, requested_passenger_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`, b.FlightID, b.PassengerCount, b.RequestedPassengerCount, b.Status, b.CreatedAt, b.UpdatedAt).
		Scan(&b.ID); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	if onCreated != nil {
		if err := onCreated(b); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrBookingNotFound, id)
	}
	return b, err
}

func (r *PGBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	return r.Query(ctx, domain.BookingFilter{})
}

func (r *PGBookingRepository) Query(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	where, args := bookingWhere(filter)
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) Mutate(ctx context.Context, id int64, fn BookingMutation) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := lockBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings
		SET flight_id=$2, passenger_count=$3, requested_passenger_count=$4, status=$5, updated_at=$6
		WHERE id=$1`, b.ID, b.FlightID, b.PassengerCount, b.RequestedPassengerCount, b.Status, b.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update booking %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, id int64, onDeleted BookingMutation) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	b, err := lockBooking(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	if onDeleted != nil {
		if err := onDeleted(b); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGBookingRepository) DeleteByFlightID(ctx context.Context, flightID int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE flight_id=$1`, flightID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *PGBookingRepository) Statistics(ctx context.Context) (domain.BookingStatistics, error) {
	var stats domain.BookingStatistics
	err := r.db.QueryRow(ctx, `SELECT count(*), COALESCE(sum(passenger_count), 0), COALESCE(avg(passenger_count), 0)::float8 FROM bookings`).
		Scan(&stats.BookingCount, &stats.TotalPassengers, &stats.AveragePassengers)
	return stats, err
}

func lockBooking(ctx context.Context, tx pgx.Tx, id int64) (*domain.Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrBookingNotFound, id)
	}
	return b, err
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.FlightID, &b.PassengerCount, &b.RequestedPassengerCount, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
