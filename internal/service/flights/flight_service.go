package flights

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/flightsaga/internal/csvio"
	"github.com/Domenick1991/flightsaga/internal/domain"
	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/messaging"
	"github.com/Domenick1991/flightsaga/internal/metrics"
	"github.com/Domenick1991/flightsaga/internal/repository"
)

type FlightUseCase interface {
	Create(ctx context.Context, flight domain.Flight) (*domain.Flight, error)
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Update(ctx context.Context, id int64, patch domain.FlightPatch) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
	Query(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	Import(ctx context.Context, r io.Reader) (ImportResult, error)
	Export(ctx context.Context, w io.Writer) error
	Statistics(ctx context.Context) (domain.FlightStatistics, error)
}

// OutcomeFunc runs inside the capacity transaction once the outcome is known.
// Returning an error rolls the capacity change back.
type OutcomeFunc func(flight *domain.Flight, outcome domain.Outcome) error

// Ledger is the only way seat capacity changes.
type Ledger interface {
	Reserve(ctx context.Context, flightID int64, passengers int, then OutcomeFunc) (domain.Outcome, error)
	Release(ctx context.Context, flightID int64, passengers int) error
	AdjustForUpdate(ctx context.Context, flightID int64, oldCount, newCount int, then OutcomeFunc) (domain.Outcome, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type ImportResult struct {
	Imported int64 `json:"imported"`
	Skipped  int   `json:"skipped"`
}

type FlightService struct {
	repo      repository.FlightRepository
	cache     FlightCache
	publisher messaging.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

type FlightServiceOption func(*FlightService)

func WithCache(cache FlightCache) FlightServiceOption {
	return func(s *FlightService) {
		s.cache = cache
	}
}

func WithLogger(logger *zap.Logger) FlightServiceOption {
	return func(s *FlightService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) FlightServiceOption {
	return func(s *FlightService) {
		s.now = now
	}
}

func NewFlightService(repo repository.FlightRepository, publisher messaging.Publisher, opts ...FlightServiceOption) *FlightService {
	s := &FlightService{
		repo:      repo,
		publisher: publisher,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlightService) Create(ctx context.Context, flight domain.Flight) (*domain.Flight, error) {
	now := s.now()
	flight.ID = 0
	flight.CreatedAt, flight.UpdatedAt = now, now
	if err := flight.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &flight); err != nil {
		return nil, fmt.Errorf("create flight: %w", err)
	}
	s.invalidate(ctx)
	return &flight, nil
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Warn("cache flights", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) Update(ctx context.Context, id int64, patch domain.FlightPatch) (*domain.Flight, error) {
	updated, err := s.repo.Mutate(ctx, id, func(f *domain.Flight) error {
		f.Apply(patch, s.now())
		return f.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes the flight and announces FlightCancelled. The row survives when
// the announcement cannot be published.
func (s *FlightService) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id, func(f *domain.Flight) error {
		env, err := events.New(events.FlightCancelled{FlightID: f.ID})
		if err != nil {
			return err
		}
		return messaging.Send(ctx, s.publisher, env)
	})
	if err != nil {
		return err
	}
	s.logger.Info("flight cancelled", zap.Int64("flight_id", id))
	s.invalidate(ctx)
	return nil
}

func (s *FlightService) Query(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	return s.repo.Query(ctx, filter)
}

func (s *FlightService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	flights, skipped, err := csvio.ReadFlights(r, s.now())
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	n, err := s.repo.CreateBatch(ctx, flights)
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.Info("flights imported", zap.Int64("imported", n), zap.Int("skipped", skipped))
	s.invalidate(ctx)
	return ImportResult{Imported: n, Skipped: skipped}, nil
}

func (s *FlightService) Export(ctx context.Context, w io.Writer) error {
	flights, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	return csvio.WriteFlights(w, flights)
}

func (s *FlightService) Statistics(ctx context.Context) (domain.FlightStatistics, error) {
	return s.repo.Statistics(ctx)
}

func (s *FlightService) Reserve(ctx context.Context, flightID int64, passengers int, then OutcomeFunc) (domain.Outcome, error) {
	var outcome domain.Outcome
	_, err := s.repo.Mutate(ctx, flightID, func(f *domain.Flight) error {
		var err error
		if outcome, err = f.Reserve(passengers, s.now()); err != nil {
			return err
		}
		if then != nil {
			return then(f, outcome)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.settled(ctx, "reserve", flightID, outcome)
	return outcome, nil
}

func (s *FlightService) Release(ctx context.Context, flightID int64, passengers int) error {
	_, err := s.repo.Mutate(ctx, flightID, func(f *domain.Flight) error {
		return f.Release(passengers, s.now())
	})
	if err != nil {
		return err
	}
	s.settled(ctx, "release", flightID, domain.OutcomeConfirmed)
	return nil
}

func (s *FlightService) AdjustForUpdate(ctx context.Context, flightID int64, oldCount, newCount int, then OutcomeFunc) (domain.Outcome, error) {
	var outcome domain.Outcome
	_, err := s.repo.Mutate(ctx, flightID, func(f *domain.Flight) error {
		var err error
		if outcome, err = f.AdjustForUpdate(oldCount, newCount, s.now()); err != nil {
			return err
		}
		if then != nil {
			return then(f, outcome)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.settled(ctx, "adjust", flightID, outcome)
	return outcome, nil
}

func (s *FlightService) settled(ctx context.Context, operation string, flightID int64, outcome domain.Outcome) {
	metrics.LedgerOutcomes.WithLabelValues(operation, string(outcome)).Inc()
	s.logger.Debug("capacity settled",
		zap.String("operation", operation),
		zap.Int64("flight_id", flightID),
		zap.String("outcome", string(outcome)))
	if outcome == domain.OutcomeConfirmed {
		s.invalidate(ctx)
	}
}

func (s *FlightService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.logger.Warn("invalidate flights cache", zap.Error(err))
	}
}

var (
	_ FlightUseCase = (*FlightService)(nil)
	_ Ledger        = (*FlightService)(nil)
)
