package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/flightsaga/internal/domain"
)

func TestFlights_ExportThenImport(t *testing.T) {
	dep := time.Date(2025, 7, 1, 8, 30, 0, 0, time.UTC)
	flights := []domain.Flight{{
		Number: "LH100", FromCity: "Berlin", ToCity: "Paris",
		Departure: dep, Arrival: dep.Add(2 * time.Hour),
		RemainingCapacity: 120, PriceCents: 9900,
		CreatedAt: dep.Add(-time.Hour), UpdatedAt: dep.Add(-time.Minute),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteFlights(&buf, flights))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(FlightHeader, ",")+"\n"))

	imported, skipped, err := ReadFlights(&buf, time.Now())
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, flights, imported)
}

func TestReadFlights_SkipsInvalidRows(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	input := strings.Join([]string{
		"number,from_city,to_city,departure,arrival,remaining_capacity,price_cents",
		"LH100,Berlin,Paris,2025-07-01T08:00:00Z,2025-07-01T10:00:00Z,100,9900",
		"LH101,Berlin,Paris,not-a-time,2025-07-01T10:00:00Z,100,9900",
		"LH102,Berlin,Paris,2025-07-01T08:00:00Z,2025-07-01T10:00:00Z,-1,9900",
		"LH103,Berlin",
		"LH104,Rome,Oslo,2025-07-01T08:00:00Z,2025-07-01T06:00:00Z,10,9900",
	}, "\n")

	flights, skipped, err := ReadFlights(strings.NewReader(input), now)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, flights, 1)
	assert.Equal(t, "LH100", flights[0].Number)
	assert.Equal(t, now, flights[0].CreatedAt)
}

func TestReadFlights_RejectsUnknownHeader(t *testing.T) {
	_, _, err := ReadFlights(strings.NewReader("a,b\n1,2\n"), time.Now())
	assert.ErrorIs(t, err, ErrHeader)
}

func TestWriteBookings(t *testing.T) {
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, []domain.Booking{{
		ID: 7, FlightID: 3, PassengerCount: 2, Status: domain.BookingStatusConfirmed,
		CreatedAt: created, UpdatedAt: created,
	}}))
	assert.Equal(t,
		"id,flight_id,passenger_count,status,created_at,updated_at\n7,3,2,CONFIRMED,2025-02-03T04:05:06Z,2025-02-03T04:05:06Z\n",
		buf.String())
}
