package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/flightsaga/internal/domain"
	"github.com/Domenick1991/flightsaga/internal/service/flights"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.POST("/query", h.query)
	router.GET("/export", h.export)
	router.POST("/import", h.importCSV)
	router.GET("/statistics", h.statistics)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

func (h *FlightHandler) create(c *gin.Context) {
	var req domain.Flight
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	flight, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flight)
}

func (h *FlightHandler) list(c *gin.Context) {
	flights, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flights)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch domain.FlightPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	flight, err := h.service.Update(c.Request.Context(), id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

// delete cancels the flight; its bookings are removed once the booking service
// receives FlightCancelled.
func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlightHandler) query(c *gin.Context) {
	var filter domain.FlightFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	flights, err := h.service.Query(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flights)
}

func (h *FlightHandler) export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="flights.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// importCSV accepts the file either as a multipart "file" field or as the raw body.
func (h *FlightHandler) importCSV(c *gin.Context) {
	var src io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
			return
		}
		file, err := header.Open()
		if err != nil {
			writeError(c, err)
			return
		}
		defer file.Close()
		src = file
	}

	result, err := h.service.Import(c.Request.Context(), src)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlightHandler) statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
