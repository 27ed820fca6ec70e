package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/calendar"
	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/importer"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

type eventSearcher interface {
	Search(ctx context.Context, q importer.Query) (*importer.Result, error)
}

type importedEventStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
}

// ImportConfig holds search defaults.
type ImportConfig struct {
	DefaultKeyword  string
	DefaultLocation string
}

// ImportService searches external event APIs and copies chosen results into the calendar.
type ImportService struct {
	searcher  eventSearcher
	events    importedEventStore
	cache     *SearchCache
	feed      changePublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ImportConfig
	now       func() time.Time
}

// NewImportService constructs the service.
func NewImportService(searcher eventSearcher, events importedEventStore, cache *SearchCache, feed changePublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ImportConfig) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		searcher:  searcher,
		events:    events,
		cache:     cache,
		feed:      feed,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Search runs a live search. When every endpoint fails the placeholder catalogue is returned
// with Live=false instead of an error.
func (s *ImportService) Search(ctx context.Context, viewer models.Viewer, q importer.Query) (*dto.ImportSearchResponse, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to import events")
	}
	q = q.Normalize(s.cfg.DefaultKeyword, s.cfg.DefaultLocation)
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startDate must be formatted as YYYY-MM-DD")
	}

	if cached, hit := s.cache.Lookup(ctx, q); hit {
		s.metrics.RecordImportSearch("cached")
		return &dto.ImportSearchResponse{Result: *cached, Message: searchMessage(*cached), Cached: true}, nil
	}

	result, err := s.searcher.Search(ctx, q)
	if err != nil {
		s.logger.Warn("live event search failed, using placeholders", zap.String("keyword", q.Keyword), zap.String("location", q.Location), zap.Error(err))
		candidates, fbErr := importer.Fallback(q, s.now())
		if fbErr != nil {
			return nil, appErrors.Wrap(errors.Join(err, fbErr), appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "event search unavailable")
		}
		s.metrics.RecordImportSearch("fallback")
		fallback := importer.Result{Query: q, Live: false, Candidates: candidates}
		return &dto.ImportSearchResponse{
			Result:  fallback,
			Message: fmt.Sprintf("Live search unavailable. Showing %d sample events.", len(candidates)),
		}, nil
	}

	s.metrics.RecordImportSearch("live")
	s.cache.Store(ctx, q, *result)
	return &dto.ImportSearchResponse{Result: *result, Message: searchMessage(*result)}, nil
}

// FlushSearchCache forgets every cached search so the next one goes upstream.
func (s *ImportService) FlushSearchCache(ctx context.Context, viewer models.Viewer) error {
	if !viewer.Authenticated() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "sign in required")
	}
	if err := s.cache.Flush(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flush search cache")
	}
	s.logger.Info("import search cache flushed", zap.String("by", viewer.UserID))
	return nil
}

func searchMessage(result importer.Result) string {
	if len(result.Candidates) == 0 {
		return "No events found. Try different search terms or categories."
	}
	return fmt.Sprintf("Found %d upcoming events", len(result.Candidates))
}

// Import stores a search hit unless an event with the same external id already exists.
func (s *ImportService) Import(ctx context.Context, viewer models.Viewer, req dto.ImportRequest) (*models.Event, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to import events")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}
	candidate := importer.Candidate{
		ExternalID:  strings.TrimSpace(req.ExternalID),
		Title:       strings.TrimSpace(req.Title),
		Start:       *req.Start,
		Description: req.Description,
		Link:        req.Link,
		Location:    req.Location,
		Source:      importer.Source(req.Source),
	}
	if req.End != nil {
		candidate.End = *req.End
	}
	if candidate.IsPlaceholder() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sample events cannot be imported")
	}
	return s.importCandidate(ctx, viewer.UserID, candidate)
}

func (s *ImportService) importCandidate(ctx context.Context, ownerID string, c importer.Candidate) (*models.Event, error) {
	start := c.Start.UTC()
	end := c.End.UTC()
	if c.End.IsZero() || !end.After(start) {
		end = start.Add(defaultEventLength)
	}
	if end.Sub(start) > calendar.MaxEventSpan {
		s.metrics.RecordImport("failed")
		return nil, appErrors.Clone(appErrors.ErrValidation, "event runs longer than a year")
	}

	existing, err := s.events.FindByExternalID(ctx, c.ExternalID)
	if err == nil {
		s.metrics.RecordImport("duplicate")
		s.logger.Info("import skipped, already in calendar", zap.String("external_id", c.ExternalID), zap.String("event_id", existing.ID))
		return nil, appErrors.Clone(appErrors.ErrAlreadyImported, fmt.Sprintf("%q is already in your calendar", c.Title))
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordImport("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing imports")
	}

	externalID := c.ExternalID
	event := &models.Event{
		Title:       c.Title,
		Start:       &start,
		End:         &end,
		Genre:       models.GenreTicketmaster,
		Location:    nonEmpty(c.Location),
		Description: nonEmpty(c.Description),
		Link:        nonEmpty(c.Link),
		UserID:      ownerID,
		ExternalID:  &externalID,
		Source:      models.EventSourceImport,
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.metrics.RecordImport("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import event")
	}
	s.metrics.RecordImport("imported")
	s.feed.Publish(models.EventChange{Kind: models.EventCreated, EventID: event.ID})
	s.logger.Info("event imported", zap.String("event_id", event.ID), zap.String("external_id", externalID), zap.String("user_id", ownerID))
	return event, nil
}

func nonEmpty(value string) *string {
	return trimmedOrNil(&value)
}

// ImportAll runs a live search and imports every result as ownerID. Placeholder results are never
// imported; a failed live search is returned as an error so the caller can retry.
func (s *ImportService) ImportAll(ctx context.Context, ownerID string, q importer.Query) (*dto.ScheduledImportReport, error) {
	q = q.Normalize(s.cfg.DefaultKeyword, s.cfg.DefaultLocation)
	report := &dto.ScheduledImportReport{Search: savedSearchLabel(q), RanAt: s.now().UTC()}

	result, err := s.searcher.Search(ctx, q)
	if err != nil {
		return report, fmt.Errorf("live search %s: %w", report.Search, err)
	}
	report.Live = result.Live
	report.Found = len(result.Candidates)

	for _, candidate := range result.Candidates {
		if candidate.IsPlaceholder() {
			continue
		}
		if _, err := s.importCandidate(ctx, ownerID, candidate); err != nil {
			if appErrors.Is(err, appErrors.ErrAlreadyImported) {
				report.Duplicates++
				continue
			}
			report.Failed++
			s.logger.Warn("scheduled import failed", zap.String("external_id", candidate.ExternalID), zap.Error(err))
			continue
		}
		report.Imported++
	}
	return report, nil
}

func savedSearchLabel(q importer.Query) string {
	return q.Keyword + "@" + q.Location
}
