package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/flightsaga/internal/domain"
)

const flightColumns = `id, number, from_city, to_city, departure, arrival, remaining_capacity, price_cents, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	return r.db.QueryRow(ctx, `INSERT INTO flights (number, from_city, to_city, departure, arrival, remaining_capacity, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`, f.Number, f.FromCity, f.ToCity, f.Departure, f.Arrival, f.RemainingCapacity, f.PriceCents, f.CreatedAt, f.UpdatedAt).
		Scan(&f.ID)
}

func (r *PGFlightRepository) CreateBatch(ctx context.Context, flights []domain.Flight) (int64, error) {
	if len(flights) == 0 {
		return 0, nil
	}
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"flights"},
		[]string{"number", "from_city", "to_city", "departure", "arrival", "remaining_capacity", "price_cents", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(flights), func(i int) ([]any, error) {
			f := flights[i]
			return []any{f.Number, f.FromCity, f.ToCity, f.Departure, f.Arrival, f.RemainingCapacity, f.PriceCents, f.CreatedAt, f.UpdatedAt}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy flights: %w", err)
	}
	return n, nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrFlightNotFound, id)
	}
	return f, err
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	return r.Query(ctx, domain.FlightFilter{})
}

func (r *PGFlightRepository) Query(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	where, args := flightWhere(filter)
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights`+where+` ORDER BY departure, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) Mutate(ctx context.Context, id int64, fn FlightMutation) (*domain.Flight, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	f, err := lockFlight(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(f); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE flights
		SET number=$2, from_city=$3, to_city=$4, departure=$5, arrival=$6, remaining_capacity=$7, price_cents=$8, updated_at=$9
		WHERE id=$1`, f.ID, f.Number, f.FromCity, f.ToCity, f.Departure, f.Arrival, f.RemainingCapacity, f.PriceCents, f.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update flight %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64, onDeleted FlightMutation) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	f, err := lockFlight(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete flight %d: %w", id, err)
	}
	if onDeleted != nil {
		if err := onDeleted(f); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGFlightRepository) Statistics(ctx context.Context) (domain.FlightStatistics, error) {
	var stats domain.FlightStatistics
	err := r.db.QueryRow(ctx, `SELECT
		COALESCE((SELECT from_city FROM flights GROUP BY from_city ORDER BY count(*) DESC, from_city LIMIT 1), ''),
		COALESCE((SELECT to_city FROM flights GROUP BY to_city ORDER BY count(*) DESC, to_city LIMIT 1), ''),
		(SELECT count(*) FROM flights)`).
		Scan(&stats.TopDepartureCity, &stats.TopArrivalCity, &stats.TotalFlights)
	return stats, err
}

func lockFlight(ctx context.Context, tx pgx.Tx, id int64) (*domain.Flight, error) {
	f, err := scanFlight(tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrFlightNotFound, id)
	}
	return f, err
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.Number, &f.FromCity, &f.ToCity, &f.Departure, &f.Arrival, &f.RemainingCapacity, &f.PriceCents, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
