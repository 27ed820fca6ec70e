package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/importer"
	"github.com/palace-events/events-api/internal/middleware"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
	"github.com/palace-events/events-api/pkg/response"
)

type eventImporter interface {
	Search(ctx context.Context, viewer models.Viewer, q importer.Query) (*dto.ImportSearchResponse, error)
	Import(ctx context.Context, viewer models.Viewer, req dto.ImportRequest) (*models.Event, error)
	FlushSearchCache(ctx context.Context, viewer models.Viewer) error
}

type scheduledImports interface {
	Reports() []dto.ScheduledImportReport
	EnqueueAll()
}

// ImportHandler exposes event search and import endpoints.
type ImportHandler struct {
	imports   eventImporter
	scheduled scheduledImports
}

// NewImportHandler constructs the handler. scheduled may be nil when periodic import is disabled.
func NewImportHandler(imports eventImporter, scheduled scheduledImports) *ImportHandler {
	return &ImportHandler{imports: imports, scheduled: scheduled}
}

// Search godoc
// @Summary Search external events
// @Description Falls back to clearly marked sample events (live=false) when every endpoint fails.
// @Tags Imports
// @Produce json
// @Param keyword query string false "Keyword"
// @Param location query string false "City"
// @Param category query string false "Category"
// @Param startDate query string false "Start date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /imports/search [get]
func (h *ImportHandler) Search(c *gin.Context) {
	var q importer.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search parameters"))
		return
	}
	result, err := h.imports.Search(c.Request.Context(), viewerFromContext(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, middleware.MetaCacheHit, result.Cached)
	middleware.SetMeta(c, middleware.MetaLive, result.Live)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Import godoc
// @Summary Import a search result
// @Description Returns 409 when an event with the same external id is already in the calendar.
// @Tags Imports
// @Accept json
// @Produce json
// @Param payload body dto.ImportRequest true "Search result to import"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /imports [post]
func (h *ImportHandler) Import(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	event, err := h.imports.Import(c.Request.Context(), viewerFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// FlushCache godoc
// @Summary Flush cached searches
// @Description Staff only. The next search for every query goes upstream.
// @Tags Imports
// @Security BearerAuth
// @Success 204
// @Router /imports/search/cache [delete]
func (h *ImportHandler) FlushCache(c *gin.Context) {
	if err := h.imports.FlushSearchCache(c.Request.Context(), viewerFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ScheduledReports godoc
// @Summary Scheduled import reports
// @Tags Imports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /imports/scheduled [get]
func (h *ImportHandler) ScheduledReports(c *gin.Context) {
	if h.scheduled == nil {
		response.JSON(c, http.StatusOK, []dto.ScheduledImportReport{}, nil, map[string]interface{}{"enabled": false})
		return
	}
	response.JSON(c, http.StatusOK, h.scheduled.Reports(), nil, map[string]interface{}{"enabled": true})
}

// RunScheduled godoc
// @Summary Queue every saved search now
// @Tags Imports
// @Produce json
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /imports/scheduled/run [post]
func (h *ImportHandler) RunScheduled(c *gin.Context) {
	if h.scheduled == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "scheduled import is disabled"))
		return
	}
	h.scheduled.EnqueueAll()
	response.JSON(c, http.StatusAccepted, gin.H{"queued": true}, nil)
}
