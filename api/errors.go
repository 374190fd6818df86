package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/flightsaga/internal/domain"
)

var errInvalidID = errors.New("invalid id")

func statusOf(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidPassengerCount), errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBookingPending):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status err maps to. The error is attached to the
// context so the request logger reports it.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error()})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, errInvalidID)
		return 0, false
	}
	return id, true
}
