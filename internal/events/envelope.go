package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrUnknownKind = errors.New("unknown event kind")
	ErrMalformed   = errors.New("malformed event")
)

// causationNamespace seeds the deterministic ids of events caused by another event.
var causationNamespace = uuid.MustParse("6f1c3c57-1f6e-4c55-9d0a-2b8e5c4a7d10")

type Header struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	PublishedAt time.Time `json:"published_at"`
	CausationID string    `json:"causation_id,omitempty"`
}

type Envelope struct {
	Header  Header          `json:"header"`
	Payload json.RawMessage `json:"payload"`

	// Key is the partition key of the payload. It is not serialized.
	Key string `json:"-"`
}

// New wraps ev into an envelope with a fresh id.
func New(ev Event) (Envelope, error) {
	return wrap(ev, Header{
		ID:          uuid.NewString(),
		Kind:        ev.Kind(),
		PublishedAt: time.Now().UTC(),
	})
}

// NewCausedBy wraps ev as the reaction to cause. The id is derived from the cause id
// and the kind, so reprocessing the same inbound event yields the same outbound id.
func NewCausedBy(cause Header, ev Event) (Envelope, error) {
	return wrap(ev, Header{
		ID:          uuid.NewSHA1(causationNamespace, []byte(cause.ID+"/"+string(ev.Kind()))).String(),
		Kind:        ev.Kind(),
		PublishedAt: time.Now().UTC(),
		CausationID: cause.ID,
	})
}

func wrap(ev Event, h Header) (Envelope, error) {
	if err := ev.validate(); err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", h.Kind, err)
	}
	return Envelope{Header: h, Payload: payload, Key: ev.PartitionKey()}, nil
}

func (e Envelope) RoutingKey() string {
	return e.Header.Kind.RoutingKey()
}

func Marshal(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses the wire form. It does not look at the payload; see Decode.
func Unmarshal(body []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.Header.ID == "" || e.Header.Kind == "" {
		return Envelope{}, fmt.Errorf("%w: header id and kind are required", ErrMalformed)
	}
	return e, nil
}

// Decode turns the payload into the concrete event named by the header kind.
func (e Envelope) Decode() (Event, error) {
	switch e.Header.Kind {
	case KindBookingCreated:
		return decode[BookingCreated](e)
	case KindBookingUpdated:
		return decode[BookingUpdated](e)
	case KindBookingCancelled:
		return decode[BookingCancelled](e)
	case KindBookingConfirmed:
		return decode[BookingConfirmed](e)
	case KindBookingRejected:
		return decode[BookingRejected](e)
	case KindBookingUpdateConfirmed:
		return decode[BookingUpdateConfirmed](e)
	case KindBookingUpdateRejected:
		return decode[BookingUpdateRejected](e)
	case KindFlightCancelled:
		return decode[FlightCancelled](e)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Header.Kind)
	}
}

func decode[T Event](e Envelope) (Event, error) {
	var ev T
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("%w: %s has no payload", ErrMalformed, e.Header.Kind)
	}
	if err := json.Unmarshal(e.Payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, e.Header.Kind, err)
	}
	if err := ev.validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func missingFields(fields ...string) error {
	missing := lo.Filter(fields, func(name string, _ int) bool { return name != "" })
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing or non-positive %s", ErrMalformed, strings.Join(missing, ", "))
}
