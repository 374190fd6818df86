package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	MaxPassengerCount  = 500
	maxFlightNumberLen = 10
	maxCityLen         = 100
)

// Outcome is the answer of the flight ledger to a capacity request.
type Outcome string

const (
	OutcomeConfirmed Outcome = "CONFIRMED"
	OutcomeRejected  Outcome = "REJECTED"
)

type Flight struct {
	ID                int64     `json:"id"`
	Number            string    `json:"number"`
	FromCity          string    `json:"from_city"`
	ToCity            string    `json:"to_city"`
	Departure         time.Time `json:"departure"`
	Arrival           time.Time `json:"arrival"`
	RemainingCapacity int       `json:"remaining_capacity"`
	PriceCents        int64     `json:"price_cents"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FlightPatch carries a partial flight update; nil fields are left untouched.
type FlightPatch struct {
	Number            *string    `json:"number"`
	FromCity          *string    `json:"from_city"`
	ToCity            *string    `json:"to_city"`
	Departure         *time.Time `json:"departure"`
	Arrival           *time.Time `json:"arrival"`
	RemainingCapacity *int       `json:"remaining_capacity"`
	PriceCents        *int64     `json:"price_cents"`
}

func ValidatePassengerCount(n int) error {
	if n < 1 || n > MaxPassengerCount {
		return fmt.Errorf("%w: got %d", ErrInvalidPassengerCount, n)
	}
	return nil
}

// Validate checks the attributes a flight must carry before it is stored.
func (f *Flight) Validate() error {
	var problems []string
	if f.Number == "" || len(f.Number) > maxFlightNumberLen {
		problems = append(problems, "number must be 1..10 characters")
	}
	if f.FromCity == "" || len(f.FromCity) > maxCityLen {
		problems = append(problems, "from_city must be 1..100 characters")
	}
	if f.ToCity == "" || len(f.ToCity) > maxCityLen {
		problems = append(problems, "to_city must be 1..100 characters")
	}
	if f.Departure.IsZero() || f.Arrival.IsZero() {
		problems = append(problems, "departure and arrival are required")
	} else if f.Arrival.Before(f.Departure) {
		problems = append(problems, "arrival must be after departure")
	}
	if f.RemainingCapacity < 0 || f.RemainingCapacity > MaxPassengerCount {
		problems = append(problems, "remaining_capacity must be 0..500")
	}
	if f.PriceCents <= 0 {
		problems = append(problems, "price_cents must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Apply copies the non-nil fields of p onto f.
func (f *Flight) Apply(p FlightPatch, now time.Time) {
	if p.Number != nil {
		f.Number = *p.Number
	}
	if p.FromCity != nil {
		f.FromCity = *p.FromCity
	}
	if p.ToCity != nil {
		f.ToCity = *p.ToCity
	}
	if p.Departure != nil {
		f.Departure = *p.Departure
	}
	if p.Arrival != nil {
		f.Arrival = *p.Arrival
	}
	if p.RemainingCapacity != nil {
		f.RemainingCapacity = *p.RemainingCapacity
	}
	if p.PriceCents != nil {
		f.PriceCents = *p.PriceCents
	}
	f.touch(now)
}

func (f *Flight) CanReserve(passengers int) bool {
	return passengers > 0 && f.RemainingCapacity >= passengers
}

// Reserve deducts passengers from the remaining capacity. When the flight cannot
// seat them the flight is left untouched and OutcomeRejected is returned.
func (f *Flight) Reserve(passengers int, now time.Time) (Outcome, error) {
	if passengers <= 0 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidPassengerCount, passengers)
	}
	if !f.CanReserve(passengers) {
		return OutcomeRejected, nil
	}
	f.RemainingCapacity -= passengers
	f.touch(now)
	return OutcomeConfirmed, nil
}

// Release gives passengers back to the flight. There is no upper bound check.
func (f *Flight) Release(passengers int, now time.Time) error {
	if passengers <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPassengerCount, passengers)
	}
	f.RemainingCapacity += passengers
	f.touch(now)
	return nil
}

// AdjustForUpdate moves a booking from oldCount to newCount passengers. A shrinking
// (or unchanged) booking always succeeds; a growing one needs the extra seats.
func (f *Flight) AdjustForUpdate(oldCount, newCount int, now time.Time) (Outcome, error) {
	if oldCount <= 0 || newCount <= 0 {
		return "", fmt.Errorf("%w: %d -> %d", ErrInvalidPassengerCount, oldCount, newCount)
	}
	delta := oldCount - newCount
	switch {
	case delta > 0:
		return OutcomeConfirmed, f.Release(delta, now)
	case delta == 0:
		return OutcomeConfirmed, nil
	default:
		return f.Reserve(-delta, now)
	}
}

// touch advances UpdatedAt, never backwards and never to the same instant.
func (f *Flight) touch(now time.Time) {
	if !now.After(f.UpdatedAt) {
		now = f.UpdatedAt.Add(time.Microsecond)
	}
	f.UpdatedAt = now
}
