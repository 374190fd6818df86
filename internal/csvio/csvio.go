// Package csvio reads and writes the flat tabular form of flights and bookings.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Domenick1991/flightsaga/internal/domain"
)

var (
	FlightHeader  = []string{"number", "from_city", "to_city", "departure", "arrival", "remaining_capacity", "price_cents", "created_at", "updated_at"}
	BookingHeader = []string{"id", "flight_id", "passenger_count", "status", "created_at", "updated_at"}
)

var ErrHeader = errors.New("unexpected csv header")

func WriteFlights(w io.Writer, flights []domain.Flight) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FlightHeader); err != nil {
		return err
	}
	for _, f := range flights {
		if err := cw.Write([]string{
			f.Number,
			f.FromCity,
			f.ToCity,
			formatTime(f.Departure),
			formatTime(f.Arrival),
			strconv.Itoa(f.RemainingCapacity),
			strconv.FormatInt(f.PriceCents, 10),
			formatTime(f.CreatedAt),
			formatTime(f.UpdatedAt),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFlights parses flights and drops the rows that do not describe a valid
// flight. skipped counts the dropped rows. Missing timestamps are set to now.
func ReadFlights(r io.Reader, now time.Time) (flights []domain.Flight, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 7 || header[0] != FlightHeader[0] {
		return nil, 0, fmt.Errorf("%w: %v", ErrHeader, header)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, skipped, err
		}
		f, ok := parseFlight(record, now)
		if !ok {
			skipped++
			continue
		}
		flights = append(flights, f)
	}
	return flights, skipped, nil
}

func parseFlight(record []string, now time.Time) (domain.Flight, bool) {
	if len(record) < 7 {
		return domain.Flight{}, false
	}
	departure, err1 := time.Parse(time.RFC3339, record[3])
	arrival, err2 := time.Parse(time.RFC3339, record[4])
	capacity, err3 := strconv.Atoi(record[5])
	price, err4 := strconv.ParseInt(record[6], 10, 64)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return domain.Flight{}, false
	}

	f := domain.Flight{
		Number:            record[0],
		FromCity:          record[1],
		ToCity:            record[2],
		Departure:         departure,
		Arrival:           arrival,
		RemainingCapacity: capacity,
		PriceCents:        price,
		CreatedAt:         optionalTime(record, 7, now),
		UpdatedAt:         optionalTime(record, 8, now),
	}
	return f, f.Validate() == nil
}

func WriteBookings(w io.Writer, bookings []domain.Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BookingHeader); err != nil {
		return err
	}
	for _, b := range bookings {
		if err := cw.Write([]string{
			strconv.FormatInt(b.ID, 10),
			strconv.FormatInt(b.FlightID, 10),
			strconv.Itoa(b.PassengerCount),
			string(b.Status),
			formatTime(b.CreatedAt),
			formatTime(b.UpdatedAt),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optionalTime(record []string, i int, fallback time.Time) time.Time {
	if i >= len(record) || record[i] == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, record[i])
	if err != nil {
		return fallback
	}
	return t
}
