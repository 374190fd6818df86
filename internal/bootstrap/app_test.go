package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/flightsaga/config"
	"github.com/Domenick1991/flightsaga/internal/domain"
)

func standaloneConfig() *config.Config {
	return &config.Config{
		HTTP:     config.HTTPConfig{Address: "127.0.0.1:0", BookingsAddress: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Driver: config.StorageMemory},
		Broker: config.BrokerConfig{
			Driver:            config.BrokerInproc,
			DeadLetterTopic:   "saga.dead-letter",
			RedeliveryDelayMs: 1,
		},
		Queues:      config.DefaultQueues(config.ServiceStandalone),
		Idempotency: config.IdempotencyConfig{Enabled: true, LeaseSeconds: 30, TTLMinutes: 60},
	}
}

func call(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestApp_StandaloneBookingIsConfirmed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := New(ctx, standaloneConfig(), config.ServiceStandalone, nil)
	require.NoError(t, err)
	defer app.Close()
	require.Len(t, app.servers, 2)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	select {
	case <-app.Ready():
	case err := <-done:
		t.Fatalf("run stopped early: %v", err)
	}

	flightsAPI, bookingsAPI := app.servers[0].Handler, app.servers[1].Handler

	w := call(t, flightsAPI, http.MethodPost, "/flights", `{
		"number": "SU100", "from_city": "Moscow", "to_city": "Kazan",
		"departure": "2026-12-01T08:00:00Z", "arrival": "2026-12-01T09:30:00Z",
		"remaining_capacity": 10, "price_cents": 450000
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var flight domain.Flight
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flight))

	w = call(t, bookingsAPI, http.MethodPost, "/bookings", fmt.Sprintf(`{"flight_id": %d, "passenger_count": 4}`, flight.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	require.Eventually(t, func() bool {
		w := call(t, bookingsAPI, http.MethodGet, fmt.Sprintf("/bookings/%d", created.ID), "")
		var b domain.Booking
		return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &b) == nil && b.Status == domain.BookingStatusConfirmed
	}, 2*time.Second, 10*time.Millisecond)

	w = call(t, flightsAPI, http.MethodGet, fmt.Sprintf("/flights/%d", flight.ID), "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flight))
	assert.Equal(t, 6, flight.RemainingCapacity)

	cancel()
	assert.NoError(t, <-done)
}

func TestNew_Errors(t *testing.T) {
	t.Run("unknown service", func(t *testing.T) {
		_, err := New(context.Background(), standaloneConfig(), "payments", nil)
		assert.ErrorContains(t, err, "unknown service")
	})

	t.Run("queue for a service the process does not run", func(t *testing.T) {
		_, err := New(context.Background(), standaloneConfig(), config.ServiceFlights, nil)
		assert.ErrorContains(t, err, "does not run the bookings service")
	})

	t.Run("unknown broker", func(t *testing.T) {
		cfg := standaloneConfig()
		cfg.Broker.Driver = "rabbit"
		_, err := New(context.Background(), cfg, config.ServiceStandalone, nil)
		assert.ErrorContains(t, err, "unknown broker driver")
	})
}
