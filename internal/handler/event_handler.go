package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
	"github.com/palace-events/events-api/pkg/icalfeed"
	"github.com/palace-events/events-api/pkg/response"
)

type eventManager interface {
	Create(ctx context.Context, viewer models.Viewer, req dto.CreateEventRequest) (*models.Event, error)
	List(ctx context.Context, viewer models.Viewer, query dto.ListEventsQuery) ([]models.Event, *models.Pagination, error)
	Get(ctx context.Context, viewer models.Viewer, id string) (*models.Event, error)
	CalendarLink(ctx context.Context, viewer models.Viewer, id string) (*dto.CalendarLink, error)
	Delete(ctx context.Context, viewer models.Viewer, id string, confirmed bool) (*dto.DeleteResult, error)
}

type eventFeedRenderer interface {
	Event(ctx context.Context, viewer models.Viewer, id string) ([]byte, error)
}

// EventHandler exposes event CRUD endpoints.
type EventHandler struct {
	events eventManager
	feeds  eventFeedRenderer
}

// NewEventHandler constructs the handler.
func NewEventHandler(events eventManager, feeds eventFeedRenderer) *EventHandler {
	return &EventHandler{events: events, feeds: feeds}
}

// Create godoc
// @Summary Create event
// @Description Staff only. A missing end, or one not after the start, becomes start + 2h.
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.events.Create(c.Request.Context(), viewerFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param start query string false "From (YYYY-MM-DD or RFC 3339)"
// @Param end query string false "To (YYYY-MM-DD or RFC 3339)"
// @Param genre query string false "Genre"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var query dto.ListEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	events, pagination, err := h.events.List(c.Request.Context(), viewerFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Get godoc
// @Summary Get event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), viewerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// CalendarLink godoc
// @Summary External calendar link
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/calendar-link [get]
func (h *EventHandler) CalendarLink(c *gin.Context) {
	link, err := h.events.CalendarLink(c.Request.Context(), viewerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// ICS godoc
// @Summary Event as iCalendar
// @Tags Events
// @Produce text/calendar
// @Param id path string true "Event ID"
// @Success 200 {string} string
// @Router /events/{id}/ics [get]
func (h *EventHandler) ICS(c *gin.Context) {
	body, err := h.feeds.Event(c.Request.Context(), viewerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="event.ics"`)
	c.Data(http.StatusOK, icalfeed.ContentType, body)
}

// Delete godoc
// @Summary Delete event
// @Description Owner only. Requires confirm=true. The record is re-read after a short delay and the call fails with 409 if it still exists.
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Param confirm query bool true "Explicit confirmation"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	result, err := h.events.Delete(c.Request.Context(), viewerFromContext(c), c.Param("id"), confirmed(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
