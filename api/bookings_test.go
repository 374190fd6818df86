package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/flightsaga/internal/domain"
	"github.com/Domenick1991/flightsaga/internal/messaging"
	"github.com/Domenick1991/flightsaga/internal/service/booking"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) List(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Query(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) UpdateBooking(ctx context.Context, id int64, passengerCount int) (*domain.Booking, error) {
	args := m.Called(ctx, id, passengerCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookingUseCase) Export(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx)
	_, _ = io.WriteString(w, args.String(0))
	return args.Error(1)
}

func (m *MockBookingUseCase) Statistics(ctx context.Context) (domain.BookingStatistics, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.BookingStatistics), args.Error(1)
}

func bookingEngine(svc *MockBookingUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewEngine(nil, nil, NewBookingHandler(svc))
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	input := booking.CreateBookingInput{FlightID: 1, PassengerCount: 3}
	body, _ := json.Marshal(input)
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	created := &domain.Booking{
		ID:             1,
		FlightID:       1,
		PassengerCount: 3,
		Status:         domain.BookingStatusPending,
	}

	mockService.On("CreateBooking", c.Request.Context(), input).Return(created, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.ID)
	assert.Equal(t, domain.BookingStatusPending, response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid passenger count", domain.ErrInvalidPassengerCount, http.StatusBadRequest},
		{"publish failure", fmt.Errorf("%w: broker down", messaging.ErrPublish), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := serve(bookingEngine(mockService), http.MethodPost, "/bookings", strings.NewReader(`{"flight_id":1,"passenger_count":0}`))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestBookingHandler_update(t *testing.T) {
	tests := []struct {
		name   string
		result *domain.Booking
		err    error
		status int
	}{
		{"accepted", &domain.Booking{ID: 1, PassengerCount: 2, Status: domain.BookingStatusPending}, nil, http.StatusAccepted},
		{"still pending", nil, domain.ErrBookingPending, http.StatusConflict},
		{"missing", nil, domain.ErrBookingNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			mockService.On("UpdateBooking", mock.Anything, int64(1), 5).Return(tt.result, tt.err)

			w := serve(bookingEngine(mockService), http.MethodPut, "/bookings/1", strings.NewReader(`{"passenger_count":5}`))

			assert.Equal(t, tt.status, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("DELETE", "/bookings/7", nil)

	mockService.On("CancelBooking", c.Request.Context(), int64(7)).Return(nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	mockService.AssertExpectations(t)
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	mockService.On("GetByID", mock.Anything, int64(1)).Return(&domain.Booking{ID: 1, Status: domain.BookingStatusConfirmed}, nil)

	w := serve(bookingEngine(mockService), http.MethodGet, "/bookings/1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"CONFIRMED"`)
}

func TestBookingHandler_query(t *testing.T) {
	mockService := &MockBookingUseCase{}
	status := domain.BookingStatusConfirmed
	mockService.On("Query", mock.Anything, domain.BookingFilter{Status: &status}).Return([]domain.Booking{}, nil)
	engine := bookingEngine(mockService)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/bookings/query", strings.NewReader(`{"status":"CONFIRMED"}`)).Code)
	assert.Equal(t, http.StatusBadRequest, serve(engine, http.MethodPost, "/bookings/query", strings.NewReader(`{"status":"LOST"}`)).Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_exportAndStatistics(t *testing.T) {
	mockService := &MockBookingUseCase{}
	mockService.On("Export", mock.Anything).Return("id,flight_id\n", nil)
	mockService.On("Statistics", mock.Anything).Return(domain.BookingStatistics{BookingCount: 2, TotalPassengers: 5, AveragePassengers: 2.5}, nil)
	engine := bookingEngine(mockService)

	export := serve(engine, http.MethodGet, "/bookings/export", nil)
	assert.Equal(t, http.StatusOK, export.Code)
	assert.Equal(t, "id,flight_id\n", export.Body.String())

	stats := serve(engine, http.MethodGet, "/bookings/statistics", nil)
	assert.Equal(t, http.StatusOK, stats.Code)
	assert.Contains(t, stats.Body.String(), `"total_passengers":5`)
}
