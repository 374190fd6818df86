package domain

import "time"

type FlightFilter struct {
	Number       string     `json:"number"`
	FromCity     string     `json:"from_city"`
	ToCity       string     `json:"to_city"`
	DepartureMin *time.Time `json:"departure_min"`
	DepartureMax *time.Time `json:"departure_max"`
	ArrivalMin   *time.Time `json:"arrival_min"`
	ArrivalMax   *time.Time `json:"arrival_max"`
	CapacityMin  *int       `json:"capacity_min"`
	CapacityMax  *int       `json:"capacity_max"`
	PriceMin     *int64     `json:"price_min"`
	PriceMax     *int64     `json:"price_max"`
}

// Matches is the in-memory equivalent of the SQL built from the filter.
func (q FlightFilter) Matches(f Flight) bool {
	switch {
	case q.Number != "" && f.Number != q.Number,
		q.FromCity != "" && f.FromCity != q.FromCity,
		q.ToCity != "" && f.ToCity != q.ToCity,
		q.DepartureMin != nil && f.Departure.Before(*q.DepartureMin),
		q.DepartureMax != nil && f.Departure.After(*q.DepartureMax),
		q.ArrivalMin != nil && f.Arrival.Before(*q.ArrivalMin),
		q.ArrivalMax != nil && f.Arrival.After(*q.ArrivalMax),
		q.CapacityMin != nil && f.RemainingCapacity < *q.CapacityMin,
		q.CapacityMax != nil && f.RemainingCapacity > *q.CapacityMax,
		q.PriceMin != nil && f.PriceCents < *q.PriceMin,
		q.PriceMax != nil && f.PriceCents > *q.PriceMax:
		return false
	}
	return true
}

type BookingFilter struct {
	FlightID       *int64         `json:"flight_id"`
	PassengerCount *int           `json:"passenger_count"`
	Status         *BookingStatus `json:"status"`
}

func (q BookingFilter) Matches(b Booking) bool {
	switch {
	case q.FlightID != nil && b.FlightID != *q.FlightID,
		q.PassengerCount != nil && b.PassengerCount != *q.PassengerCount,
		q.Status != nil && b.Status != *q.Status:
		return false
	}
	return true
}

type FlightStatistics struct {
	TopDepartureCity string `json:"top_departure_city"`
	TopArrivalCity   string `json:"top_arrival_city"`
	TotalFlights     int    `json:"total_flights"`
}

type BookingStatistics struct {
	BookingCount      int     `json:"booking_count"`
	TotalPassengers   int     `json:"total_passengers"`
	AveragePassengers float64 `json:"average_passengers"`
}
