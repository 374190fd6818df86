package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/flightsaga/internal/domain"
	"github.com/Domenick1991/flightsaga/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type updateBookingRequest struct {
	PassengerCount int `json:"passenger_count"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.POST("/query", h.query)
	router.GET("/export", h.export)
	router.GET("/statistics", h.statistics)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.cancel)
}

// create answers 201 with the booking still PENDING; the flight service decides
// whether it gets confirmed.
func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	b, err := h.service.UpdateBooking(c.Request.Context(), id, req.PassengerCount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.CancelBooking(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) query(c *gin.Context) {
	var filter domain.BookingFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if filter.Status != nil && !filter.Status.Valid() {
		writeError(c, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *filter.Status))
		return
	}
	bookings, err := h.service.Query(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bookings.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *BookingHandler) statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
