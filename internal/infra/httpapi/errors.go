package httpapi

import (
	"errors"
	"net/http"

	"compliance_calendar/internal/domain/calendar"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calendar.ErrValidation), errors.Is(err, calendar.ErrOverlappingCalendar):
		return http.StatusBadRequest
	case errors.Is(err, calendar.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"ok": false, "error": err.Error()}

	var verr *calendar.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func respondInvalidBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
}
