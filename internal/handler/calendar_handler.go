package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	"github.com/palace-events/events-api/internal/service"
	"github.com/palace-events/events-api/pkg/icalfeed"
	"github.com/palace-events/events-api/pkg/response"
)

type monthViewer interface {
	Month(ctx context.Context, month string, viewer models.Viewer) (*dto.MonthView, error)
}

type monthFeedRenderer interface {
	Month(ctx context.Context, month string, viewer models.Viewer) ([]byte, error)
}

type changeSubscriber interface {
	Subscribe() *service.Subscription
}

type streamGauge interface {
	StreamOpened()
	StreamClosed()
}

// CalendarHandler serves the month grid, its live stream and its iCalendar export.
type CalendarHandler struct {
	calendar monthViewer
	feeds    monthFeedRenderer
	changes  changeSubscriber
	gauge    streamGauge
	logger   *zap.Logger
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(calendar monthViewer, feeds monthFeedRenderer, changes changeSubscriber, gauge streamGauge, logger *zap.Logger) *CalendarHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarHandler{calendar: calendar, feeds: feeds, changes: changes, gauge: gauge, logger: logger}
}

// Month godoc
// @Summary Month calendar
// @Description Month grid with per-genre event counts for each day. Ticketed imports are only shown to signed-in viewers.
// @Tags Calendar
// @Produce json
// @Param month query string false "Month (YYYY-MM), defaults to the current month"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Month(c *gin.Context) {
	view, err := h.calendar.Month(c.Request.Context(), c.Query("month"), viewerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Stream godoc
// @Summary Live month calendar
// @Description Server-sent events: a "snapshot" event immediately and after every change to the store.
// @Tags Calendar
// @Produce text/event-stream
// @Param month query string false "Month (YYYY-MM)"
// @Router /calendar/stream [get]
func (h *CalendarHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	month := c.Query("month")
	viewer := viewerFromContext(c)

	first, err := h.calendar.Month(ctx, month, viewer)
	if err != nil {
		response.Error(c, err)
		return
	}

	sub := h.changes.Subscribe()
	defer sub.Close()
	if h.gauge != nil {
		h.gauge.StreamOpened()
		defer h.gauge.StreamClosed()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("snapshot", first)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			view, err := h.calendar.Month(ctx, month, viewer)
			if err != nil {
				h.logger.Warn("calendar stream refresh failed", zap.String("event_id", change.EventID), zap.Error(err))
				continue
			}
			c.SSEvent("snapshot", view)
			c.Writer.Flush()
		}
	}
}

// ICS godoc
// @Summary Month calendar as iCalendar
// @Tags Calendar
// @Produce text/calendar
// @Param month query string false "Month (YYYY-MM)"
// @Success 200 {string} string
// @Router /calendar.ics [get]
func (h *CalendarHandler) ICS(c *gin.Context) {
	body, err := h.feeds.Month(c.Request.Context(), c.Query("month"), viewerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, icalfeed.ContentType, body)
}
