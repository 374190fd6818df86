package events

// Kind is the discriminator carried in every envelope header.
type Kind string

const (
	KindBookingCreated         Kind = "booking_created"
	KindBookingUpdated         Kind = "booking_updated"
	KindBookingCancelled       Kind = "booking_cancelled"
	KindBookingConfirmed       Kind = "booking_confirmed"
	KindBookingRejected        Kind = "booking_rejected"
	KindBookingUpdateConfirmed Kind = "booking_update_confirmed"
	KindBookingUpdateRejected  Kind = "booking_update_rejected"
	KindFlightCancelled        Kind = "flight_cancelled"
)

var routingKeys = map[Kind]string{
	KindBookingCreated:         "booking.created",
	KindBookingUpdated:         "booking.updated",
	KindBookingCancelled:       "booking.cancelled",
	KindBookingConfirmed:       "flight.booking-confirmed",
	KindBookingRejected:        "flight.booking-rejected",
	KindBookingUpdateConfirmed: "flight.booking-update-confirmed",
	KindBookingUpdateRejected:  "flight.booking-update-rejected",
	KindFlightCancelled:        "flight.cancelled",
}

// Kinds lists the whole vocabulary in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindBookingCreated,
		KindBookingUpdated,
		KindBookingCancelled,
		KindBookingConfirmed,
		KindBookingRejected,
		KindBookingUpdateConfirmed,
		KindBookingUpdateRejected,
		KindFlightCancelled,
	}
}

func (k Kind) Valid() bool {
	_, ok := routingKeys[k]
	return ok
}

// RoutingKey returns the topic the kind is published on, or "" for unknown kinds.
func (k Kind) RoutingKey() string {
	return routingKeys[k]
}

func KindForRoutingKey(key string) (Kind, bool) {
	for k, rk := range routingKeys {
		if rk == key {
			return k, true
		}
	}
	return "", false
}
