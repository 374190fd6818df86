package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusRejected  BookingStatus = "REJECTED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusRejected, BookingStatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID             int64         `json:"id"`
	FlightID       int64         `json:"flight_id"`
	PassengerCount int           `json:"passenger_count"`
	Status         BookingStatus `json:"status"`
	// RequestedPassengerCount holds an update the flight side has not answered yet.
	RequestedPassengerCount *int      `json:"requested_passenger_count,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func NewBooking(flightID int64, passengers int, now time.Time) (*Booking, error) {
	if flightID <= 0 {
		return nil, fmt.Errorf("%w: flight_id is required", ErrValidation)
	}
	if err := ValidatePassengerCount(passengers); err != nil {
		return nil, err
	}
	return &Booking{
		FlightID:       flightID,
		PassengerCount: passengers,
		Status:         BookingStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// UpdateInFlight reports whether the booking waits for an answer to BookingUpdated.
func (b *Booking) UpdateInFlight() bool {
	return b.RequestedPassengerCount != nil
}

// Confirm applies BookingConfirmed. It returns false when nothing changed: the
// booking was already confirmed for that flight, or an update waits for its answer
// and a late confirmation must not settle it.
func (b *Booking) Confirm(flightID int64, now time.Time) bool {
	if b.UpdateInFlight() {
		return false
	}
	if b.Status == BookingStatusConfirmed && b.FlightID == flightID {
		return false
	}
	b.Status = BookingStatusConfirmed
	b.FlightID = flightID
	b.UpdatedAt = now
	return true
}

// RequestUpdate records newCount as pending. The confirmed passenger count stays
// as it is until the flight side confirms or rejects the change.
func (b *Booking) RequestUpdate(newCount int, now time.Time) error {
	if err := ValidatePassengerCount(newCount); err != nil {
		return err
	}
	if b.Status != BookingStatusConfirmed {
		return fmt.Errorf("%w: booking %d is %s", ErrBookingPending, b.ID, b.Status)
	}
	requested := newCount
	b.RequestedPassengerCount = &requested
	b.Status = BookingStatusPending
	b.UpdatedAt = now
	return nil
}

// ApplyUpdate applies BookingUpdateConfirmed.
func (b *Booking) ApplyUpdate(now time.Time) bool {
	if !b.UpdateInFlight() {
		if b.Status == BookingStatusConfirmed {
			return false
		}
		b.Status = BookingStatusConfirmed
		b.UpdatedAt = now
		return true
	}
	b.PassengerCount = *b.RequestedPassengerCount
	b.RequestedPassengerCount = nil
	b.Status = BookingStatusConfirmed
	b.UpdatedAt = now
	return true
}

// RollbackUpdate applies BookingUpdateRejected: the count the flight side still
// holds wins and the booking is confirmed again.
func (b *Booking) RollbackUpdate(currentCount int, now time.Time) {
	b.PassengerCount = currentCount
	b.RequestedPassengerCount = nil
	b.Status = BookingStatusConfirmed
	b.UpdatedAt = now
}
