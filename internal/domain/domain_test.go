package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func flight(capacity int) *Flight {
	return &Flight{
		ID:                1,
		Number:            "SU100",
		FromCity:          "Moscow",
		ToCity:            "Sochi",
		Departure:         now.Add(24 * time.Hour),
		Arrival:           now.Add(27 * time.Hour),
		RemainingCapacity: capacity,
		PriceCents:        1200000,
		UpdatedAt:         now,
	}
}

func TestFlight_Reserve(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		passengers int
		outcome    Outcome
		left       int
	}{
		{"fits", 10, 4, OutcomeConfirmed, 6},
		{"exactly full", 4, 4, OutcomeConfirmed, 0},
		{"too many", 3, 4, OutcomeRejected, 3},
		{"sold out", 0, 1, OutcomeRejected, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flight(tt.capacity)
			outcome, err := f.Reserve(tt.passengers, now)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.left, f.RemainingCapacity)
		})
	}
}

func TestFlight_Reserve_InvalidCount(t *testing.T) {
	_, err := flight(10).Reserve(0, now)
	assert.ErrorIs(t, err, ErrInvalidPassengerCount)
}

func TestFlight_Release(t *testing.T) {
	f := flight(500)
	require.NoError(t, f.Release(3, now))
	assert.Equal(t, 503, f.RemainingCapacity)

	assert.ErrorIs(t, f.Release(-1, now), ErrInvalidPassengerCount)
}

func TestFlight_AdjustForUpdate(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		from, to int
		outcome  Outcome
		left     int
	}{
		{"grow within capacity", 5, 2, 6, OutcomeConfirmed, 1},
		{"grow beyond capacity", 3, 2, 6, OutcomeRejected, 3},
		{"shrink", 0, 6, 2, OutcomeConfirmed, 4},
		{"unchanged", 0, 3, 3, OutcomeConfirmed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flight(tt.capacity)
			outcome, err := f.AdjustForUpdate(tt.from, tt.to, now)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.left, f.RemainingCapacity)
		})
	}
}

func TestFlight_UpdatedAtIsMonotonic(t *testing.T) {
	f := flight(10)
	_, err := f.Reserve(1, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, f.UpdatedAt.After(now))
}

func TestFlight_Validate(t *testing.T) {
	assert.NoError(t, flight(10).Validate())

	bad := flight(600)
	bad.Number = ""
	bad.Arrival = bad.Departure.Add(-time.Minute)
	err := bad.Validate()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "number")
	assert.Contains(t, err.Error(), "arrival")
	assert.Contains(t, err.Error(), "remaining_capacity")
}

func TestFlight_Apply(t *testing.T) {
	f := flight(10)
	city := "Kazan"
	capacity := 42

	f.Apply(FlightPatch{ToCity: &city, RemainingCapacity: &capacity}, now.Add(time.Minute))

	assert.Equal(t, "Kazan", f.ToCity)
	assert.Equal(t, 42, f.RemainingCapacity)
	assert.Equal(t, "Moscow", f.FromCity)
	assert.Equal(t, now.Add(time.Minute), f.UpdatedAt)
}

func TestNewBooking(t *testing.T) {
	b, err := NewBooking(1, 3, now)
	require.NoError(t, err)
	assert.Equal(t, BookingStatusPending, b.Status)

	_, err = NewBooking(1, 501, now)
	assert.ErrorIs(t, err, ErrInvalidPassengerCount)
	_, err = NewBooking(0, 1, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBooking_Confirm(t *testing.T) {
	b, err := NewBooking(1, 3, now)
	require.NoError(t, err)

	assert.True(t, b.Confirm(1, now))
	assert.Equal(t, BookingStatusConfirmed, b.Status)
	assert.False(t, b.Confirm(1, now), "second confirmation changes nothing")
}

func TestBooking_Confirm_IgnoredWhileUpdateInFlight(t *testing.T) {
	b, err := NewBooking(1, 3, now)
	require.NoError(t, err)
	b.Confirm(1, now)
	require.NoError(t, b.RequestUpdate(5, now))

	assert.False(t, b.Confirm(1, now.Add(time.Minute)), "redelivered confirmation")
	assert.Equal(t, BookingStatusPending, b.Status)
	assert.True(t, b.UpdateInFlight())
	assert.ErrorIs(t, b.RequestUpdate(7, now), ErrBookingPending, "a second update waits for the first answer")

	assert.True(t, b.ApplyUpdate(now))
	assert.Equal(t, 5, b.PassengerCount)
}

func TestBooking_UpdateLifecycle(t *testing.T) {
	b, err := NewBooking(1, 3, now)
	require.NoError(t, err)

	assert.ErrorIs(t, b.RequestUpdate(5, now), ErrBookingPending)

	b.Confirm(1, now)
	require.NoError(t, b.RequestUpdate(5, now))
	assert.Equal(t, BookingStatusPending, b.Status)
	assert.Equal(t, 3, b.PassengerCount)
	assert.True(t, b.UpdateInFlight())

	assert.True(t, b.ApplyUpdate(now))
	assert.Equal(t, 5, b.PassengerCount)
	assert.Equal(t, BookingStatusConfirmed, b.Status)
	assert.False(t, b.ApplyUpdate(now))
}

func TestBooking_RollbackUpdate(t *testing.T) {
	b, err := NewBooking(1, 3, now)
	require.NoError(t, err)
	b.Confirm(1, now)
	require.NoError(t, b.RequestUpdate(9, now))

	b.RollbackUpdate(3, now)

	assert.Equal(t, 3, b.PassengerCount)
	assert.Equal(t, BookingStatusConfirmed, b.Status)
	assert.False(t, b.UpdateInFlight())
}

func TestFilters(t *testing.T) {
	f := *flight(10)
	minCapacity := 11
	assert.True(t, FlightFilter{FromCity: "Moscow"}.Matches(f))
	assert.False(t, FlightFilter{CapacityMin: &minCapacity}.Matches(f))

	status := BookingStatusConfirmed
	b := Booking{FlightID: 1, PassengerCount: 2, Status: BookingStatusPending}
	assert.False(t, BookingFilter{Status: &status}.Matches(b))
	assert.True(t, BookingFilter{}.Matches(b))
}
