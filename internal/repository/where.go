package repository

import (
	"fmt"
	"strings"

	"github.com/Domenick1991/flightsaga/internal/domain"
)

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func flightWhere(f domain.FlightFilter) (string, []any) {
	var w where
	if f.Number != "" {
		w.add("number = $%d", f.Number)
	}
	if f.FromCity != "" {
		w.add("from_city = $%d", f.FromCity)
	}
	if f.ToCity != "" {
		w.add("to_city = $%d", f.ToCity)
	}
	if f.DepartureMin != nil {
		w.add("departure >= $%d", *f.DepartureMin)
	}
	if f.DepartureMax != nil {
		w.add("departure <= $%d", *f.DepartureMax)
	}
	if f.ArrivalMin != nil {
		w.add("arrival >= $%d", *f.ArrivalMin)
	}
	if f.ArrivalMax != nil {
		w.add("arrival <= $%d", *f.ArrivalMax)
	}
	if f.CapacityMin != nil {
		w.add("remaining_capacity >= $%d", *f.CapacityMin)
	}
	if f.CapacityMax != nil {
		w.add("remaining_capacity <= $%d", *f.CapacityMax)
	}
	if f.PriceMin != nil {
		w.add("price_cents >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		w.add("price_cents <= $%d", *f.PriceMax)
	}
	return w.String(), w.args
}

func bookingWhere(f domain.BookingFilter) (string, []any) {
	var w where
	if f.FlightID != nil {
		w.add("flight_id = $%d", *f.FlightID)
	}
	if f.PassengerCount != nil {
		w.add("passenger_count = $%d", *f.PassengerCount)
	}
	if f.Status != nil {
		w.add("status = $%d", string(*f.Status))
	}
	return w.String(), w.args
}
