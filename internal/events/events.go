package events

import (
	"strconv"
)

// Event is the closed set of saga payloads. Only types in this package implement it.
type Event interface {
	Kind() Kind
	// PartitionKey keeps events about one aggregate on one partition.
	PartitionKey() string
	validate() error
}

type BookingCreated struct {
	BookingID      int64 `json:"bookingId"`
	FlightID       int64 `json:"flightId"`
	PassengerCount int   `json:"passengerCount"`
}

type BookingUpdated struct {
	BookingID    int64 `json:"bookingId"`
	FlightID     int64 `json:"flightId"`
	CurrentCount int   `json:"currentCount"`
	NewCount     int   `json:"newCount"`
}

type BookingCancelled struct {
	BookingID      int64 `json:"bookingId,omitempty"`
	FlightID       int64 `json:"flightId"`
	PassengerCount int   `json:"passengerCount"`
}

type BookingConfirmed struct {
	BookingID int64 `json:"bookingId"`
	FlightID  int64 `json:"flightId"`
}

type BookingRejected struct {
	BookingID int64 `json:"bookingId"`
}

type BookingUpdateConfirmed struct {
	BookingID int64 `json:"bookingId"`
	FlightID  int64 `json:"flightId"`
}

type BookingUpdateRejected struct {
	BookingID    int64 `json:"bookingId"`
	FlightID     int64 `json:"flightId"`
	CurrentCount int   `json:"currentCount"`
	NewCount     int   `json:"newCount"`
}

type FlightCancelled struct {
	FlightID int64 `json:"flightId"`
}

func (BookingCreated) Kind() Kind         { return KindBookingCreated }
func (BookingUpdated) Kind() Kind         { return KindBookingUpdated }
func (BookingCancelled) Kind() Kind       { return KindBookingCancelled }
func (BookingConfirmed) Kind() Kind       { return KindBookingConfirmed }
func (BookingRejected) Kind() Kind        { return KindBookingRejected }
func (BookingUpdateConfirmed) Kind() Kind { return KindBookingUpdateConfirmed }
func (BookingUpdateRejected) Kind() Kind  { return KindBookingUpdateRejected }
func (FlightCancelled) Kind() Kind        { return KindFlightCancelled }

func (e BookingCreated) PartitionKey() string         { return id(e.BookingID) }
func (e BookingUpdated) PartitionKey() string         { return id(e.BookingID) }
func (e BookingConfirmed) PartitionKey() string       { return id(e.BookingID) }
func (e BookingRejected) PartitionKey() string        { return id(e.BookingID) }
func (e BookingUpdateConfirmed) PartitionKey() string { return id(e.BookingID) }
func (e BookingUpdateRejected) PartitionKey() string  { return id(e.BookingID) }
func (e FlightCancelled) PartitionKey() string        { return "flight-" + id(e.FlightID) }

func (e BookingCancelled) PartitionKey() string {
	if e.BookingID == 0 {
		return "flight-" + id(e.FlightID)
	}
	return id(e.BookingID)
}

func (e BookingCreated) validate() error {
	return missingFields(field("bookingId", e.BookingID), field("flightId", e.FlightID), count("passengerCount", e.PassengerCount))
}

func (e BookingUpdated) validate() error {
	return missingFields(field("bookingId", e.BookingID), field("flightId", e.FlightID),
		count("currentCount", e.CurrentCount), count("newCount", e.NewCount))
}

func (e BookingCancelled) validate() error {
	return missingFields(field("flightId", e.FlightID), count("passengerCount", e.PassengerCount))
}

func (e BookingConfirmed) validate() error {
	return missingFields(field("bookingId", e.BookingID), field("flightId", e.FlightID))
}

func (e BookingRejected) validate() error {
	return missingFields(field("bookingId", e.BookingID))
}

func (e BookingUpdateConfirmed) validate() error {
	return missingFields(field("bookingId", e.BookingID), field("flightId", e.FlightID))
}

func (e BookingUpdateRejected) validate() error {
	return missingFields(field("bookingId", e.BookingID), field("flightId", e.FlightID),
		count("currentCount", e.CurrentCount), count("newCount", e.NewCount))
}

func (e FlightCancelled) validate() error {
	return missingFields(field("flightId", e.FlightID))
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func field(name string, v int64) string {
	if v <= 0 {
		return name
	}
	return ""
}

func count(name string, v int) string {
	return field(name, int64(v))
}
