package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	"github.com/palace-events/events-api/internal/service"
	"github.com/palace-events/events-api/pkg/response"
)

type attendanceManager interface {
	Attend(ctx context.Context, viewer models.Viewer, eventID string) (*dto.AttendanceStatus, error)
	Unattend(ctx context.Context, viewer models.Viewer, eventID string, confirmed bool) (*dto.AttendanceStatus, error)
	Status(ctx context.Context, viewer models.Viewer, eventID string) (*dto.AttendanceStatus, error)
	ListMine(ctx context.Context, viewer models.Viewer) ([]models.Event, error)
}

type rosterExporter interface {
	Roster(ctx context.Context, viewer models.Viewer, eventID string, format service.ExportFormat) (*service.ExportFile, error)
}

// AttendanceHandler exposes RSVP endpoints and the owner's roster export.
type AttendanceHandler struct {
	attendance attendanceManager
	exporter   rosterExporter
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceManager, exporter rosterExporter) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exporter: exporter}
}

// Attend godoc
// @Summary Attend event
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /events/{id}/attendees/me [put]
func (h *AttendanceHandler) Attend(c *gin.Context) {
	status, err := h.attendance.Attend(c.Request.Context(), viewerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Unattend godoc
// @Summary Remove RSVP
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Param confirm query bool true "Explicit confirmation"
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /events/{id}/attendees/me [delete]
func (h *AttendanceHandler) Unattend(c *gin.Context) {
	status, err := h.attendance.Unattend(c.Request.Context(), viewerFromContext(c), c.Param("id"), confirmed(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Status godoc
// @Summary Attendance status
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/attendees [get]
func (h *AttendanceHandler) Status(c *gin.Context) {
	status, err := h.attendance.Status(c.Request.Context(), viewerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Mine godoc
// @Summary Events I attend
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /me/attending [get]
func (h *AttendanceHandler) Mine(c *gin.Context) {
	events, err := h.attendance.ListMine(c.Request.Context(), viewerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Export godoc
// @Summary Export attendee roster
// @Description Owner only.
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Event ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /events/{id}/attendees/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	file, err := h.exporter.Roster(c.Request.Context(), viewerFromContext(c), c.Param("id"), service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
