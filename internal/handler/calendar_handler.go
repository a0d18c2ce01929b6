package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyplanhq/calsync-api/internal/models"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
	"github.com/studyplanhq/calsync-api/pkg/response"
)

// The default query window when the caller gives no dates.
const defaultWindow = 31 * 24 * time.Hour

type calendarEventLister interface {
	ListEvents(ctx context.Context, userID string, from, to time.Time) ([]models.CalendarEvent, error)
}

// CalendarHandler exposes the unified calendar read model.
type CalendarHandler struct {
	calendar calendarEventLister
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(calendar calendarEventLister) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// List godoc
// @Summary Unified calendar events for a window
// @Tags Calendar
// @Produce json
// @Param user_id query string true "User ID"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /calendar/events [get]
func (h *CalendarHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user_id is required"))
		return
	}

	start, err := parseCalendarDate(c.Query("start_date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := parseCalendarDate(c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	from, to := resolveWindow(start, end)
	if !to.After(from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date"))
		return
	}

	events, err := h.calendar.ListEvents(c.Request.Context(), userID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{
		"start": from.Format(time.RFC3339),
		"end":   to.Format(time.RFC3339),
		"count": len(events),
	})
}

func parseCalendarDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return &parsed, nil
}

func resolveWindow(start, end *time.Time) (time.Time, time.Time) {
	from := time.Now().UTC().Truncate(24 * time.Hour)
	if start != nil {
		from = start.UTC()
	}
	to := from.Add(defaultWindow)
	if end != nil {
		// End date is inclusive in the query and exclusive internally.
		to = end.UTC().Add(24 * time.Hour)
	}
	return from, to
}
