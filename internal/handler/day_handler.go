package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	"github.com/palace-events/events-api/pkg/response"
)

type dayDetailer interface {
	Detail(ctx context.Context, dateKey, genre string, viewer models.Viewer) (*dto.DayDetail, error)
}

// DayHandler serves the detail view of a date.
type DayHandler struct {
	days dayDetailer
}

// NewDayHandler constructs the handler.
func NewDayHandler(days dayDetailer) *DayHandler {
	return &DayHandler{days: days}
}

// Detail godoc
// @Summary Day detail
// @Description Events occurring on a date grouped by genre, with the viewer's actions per event.
// @Tags Calendar
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param genre path string false "Genre filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /days/{date} [get]
// @Router /days/{date}/{genre} [get]
func (h *DayHandler) Detail(c *gin.Context) {
	detail, err := h.days.Detail(c.Request.Context(), c.Param("date"), c.Param("genre"), viewerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
