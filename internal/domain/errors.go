package domain

import "errors"

var (
	ErrFlightNotFound        = errors.New("flight not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrInvalidPassengerCount = errors.New("passenger count must be between 1 and 500")
	ErrBookingPending        = errors.New("booking is waiting for flight confirmation")
	ErrValidation            = errors.New("validation failed")
)

// IsNotFound reports whether err means a referenced flight or booking does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFlightNotFound) || errors.Is(err, ErrBookingNotFound)
}
