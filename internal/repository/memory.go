package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/Domenick1991/flightsaga/internal/domain"
)

// rowLocks hands out one mutex per id, the in-memory stand-in for a row lock.
type rowLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (l *rowLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// MemoryFlightRepository keeps flights in process memory. mu only guards the map;
// callbacks passed to Mutate and Delete run under the lock of their flight alone.
type MemoryFlightRepository struct {
	mu      sync.Mutex
	rows    rowLocks
	nextID  int64
	flights map[int64]domain.Flight
}

func NewMemoryFlightRepository() *MemoryFlightRepository {
	return &MemoryFlightRepository{flights: make(map[int64]domain.Flight)}
}

func (r *MemoryFlightRepository) Create(_ context.Context, f *domain.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f.ID = r.nextID
	r.flights[f.ID] = *f
	return nil
}

func (r *MemoryFlightRepository) CreateBatch(ctx context.Context, flights []domain.Flight) (int64, error) {
	for i := range flights {
		if err := r.Create(ctx, &flights[i]); err != nil {
			return int64(i), err
		}
	}
	return int64(len(flights)), nil
}

func (r *MemoryFlightRepository) GetByID(_ context.Context, id int64) (*domain.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrFlightNotFound, id)
	}
	return &f, nil
}

func (r *MemoryFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	return r.Query(ctx, domain.FlightFilter{})
}

func (r *MemoryFlightRepository) Query(_ context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flights := lo.Filter(lo.Values(r.flights), func(f domain.Flight, _ int) bool {
		return filter.Matches(f)
	})
	slices.SortFunc(flights, func(a, b domain.Flight) int {
		if c := a.Departure.Compare(b.Departure); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return flights, nil
}

func (r *MemoryFlightRepository) load(id int64) (domain.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	if !ok {
		return f, fmt.Errorf("%w: %d", domain.ErrFlightNotFound, id)
	}
	return f, nil
}

func (r *MemoryFlightRepository) Mutate(_ context.Context, id int64, fn FlightMutation) (*domain.Flight, error) {
	defer r.rows.lock(id)()
	f, err := r.load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(&f); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.flights[id] = f
	r.mu.Unlock()
	return &f, nil
}

func (r *MemoryFlightRepository) Delete(_ context.Context, id int64, onDeleted FlightMutation) error {
	defer r.rows.lock(id)()
	f, err := r.load(id)
	if err != nil {
		return err
	}
	if onDeleted != nil {
		if err := onDeleted(&f); err != nil {
			return err
		}
	}
	r.mu.Lock()
	delete(r.flights, id)
	r.mu.Unlock()
	return nil
}

func (r *MemoryFlightRepository) Statistics(_ context.Context) (domain.FlightStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flights := lo.Values(r.flights)
	return domain.FlightStatistics{
		TopDepartureCity: mostFrequent(lo.Map(flights, func(f domain.Flight, _ int) string { return f.FromCity })),
		TopArrivalCity:   mostFrequent(lo.Map(flights, func(f domain.Flight, _ int) string { return f.ToCity })),
		TotalFlights:     len(flights),
	}, nil
}

// mostFrequent breaks ties alphabetically, like the SQL statistics query.
func mostFrequent(values []string) string {
	var best string
	var bestCount int
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	for value, n := range counts {
		if n > bestCount || (n == bestCount && value < best) {
			best, bestCount = value, n
		}
	}
	return best
}

var _ FlightRepository = (*MemoryFlightRepository)(nil)

type MemoryBookingRepository struct {
	mu       sync.Mutex
	rows     rowLocks
	nextID   int64
	bookings map[int64]domain.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{bookings: make(map[int64]domain.Booking)}
}

func (r *MemoryBookingRepository) Create(_ context.Context, b *domain.Booking, onCreated BookingMutation) error {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.mu.Unlock()

	defer r.rows.lock(id)()
	b.ID = id
	if onCreated != nil {
		if err := onCreated(b); err != nil {
			b.ID = 0
			return err
		}
	}
	r.mu.Lock()
	r.bookings[id] = cloneBooking(*b)
	r.mu.Unlock()
	return nil
}

func (r *MemoryBookingRepository) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrBookingNotFound, id)
	}
	b = cloneBooking(b)
	return &b, nil
}

func (r *MemoryBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	return r.Query(ctx, domain.BookingFilter{})
}

func (r *MemoryBookingRepository) Query(_ context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bookings := lo.FilterMap(lo.Values(r.bookings), func(b domain.Booking, _ int) (domain.Booking, bool) {
		return cloneBooking(b), filter.Matches(b)
	})
	slices.SortFunc(bookings, func(a, b domain.Booking) int { return cmp.Compare(a.ID, b.ID) })
	return bookings, nil
}

func (r *MemoryBookingRepository) load(id int64) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return b, fmt.Errorf("%w: %d", domain.ErrBookingNotFound, id)
	}
	return cloneBooking(b), nil
}

func (r *MemoryBookingRepository) Mutate(_ context.Context, id int64, fn BookingMutation) (*domain.Booking, error) {
	defer r.rows.lock(id)()
	b, err := r.load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(&b); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// DeleteByFlightID does not take row locks.
	if _, ok := r.bookings[id]; !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrBookingNotFound, id)
	}
	r.bookings[id] = cloneBooking(b)
	return &b, nil
}

func (r *MemoryBookingRepository) Delete(_ context.Context, id int64, onDeleted BookingMutation) error {
	defer r.rows.lock(id)()
	b, err := r.load(id)
	if err != nil {
		return err
	}
	if onDeleted != nil {
		if err := onDeleted(&b); err != nil {
			return err
		}
	}
	r.mu.Lock()
	delete(r.bookings, id)
	r.mu.Unlock()
	return nil
}

func (r *MemoryBookingRepository) DeleteByFlightID(_ context.Context, flightID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, b := range r.bookings {
		if b.FlightID == flightID {
			delete(r.bookings, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryBookingRepository) Statistics(_ context.Context) (domain.BookingStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := domain.BookingStatistics{BookingCount: len(r.bookings)}
	stats.TotalPassengers = lo.SumBy(lo.Values(r.bookings), func(b domain.Booking) int { return b.PassengerCount })
	if stats.BookingCount > 0 {
		stats.AveragePassengers = float64(stats.TotalPassengers) / float64(stats.BookingCount)
	}
	return stats, nil
}

func cloneBooking(b domain.Booking) domain.Booking {
	if b.RequestedPassengerCount != nil {
		requested := *b.RequestedPassengerCount
		b.RequestedPassengerCount = &requested
	}
	return b
}

var _ BookingRepository = (*MemoryBookingRepository)(nil)
