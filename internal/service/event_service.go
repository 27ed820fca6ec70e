package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/calendar"
	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

const defaultEventLength = 2 * time.Hour

type eventStore interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type changePublisher interface {
	Publish(change models.EventChange)
}

// EventConfig tunes event mutations.
type EventConfig struct {
	DeleteConfirmDelay time.Duration
	Location           *time.Location
}

// EventService manages community events.
type EventService struct {
	repo      eventStore
	users     userReader
	feed      changePublisher
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EventConfig
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewEventService constructs the service.
func NewEventService(repo eventStore, users userReader, feed changePublisher, validate *validator.Validate, logger *zap.Logger, cfg EventConfig) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	svc := &EventService{repo: repo, users: users, feed: feed, validator: validate, logger: logger, cfg: cfg, sleep: sleepContext}
	_ = svc.validator.RegisterValidation("community_genre", func(fl validator.FieldLevel) bool {
		return !strings.EqualFold(strings.TrimSpace(fl.Field().String()), models.GenreTicketmaster)
	})
	return svc
}

type createEventInput struct {
	Genre string `validate:"community_genre"`
}

// Create stores a staff-authored event. The end is corrected to start+2h when missing or not after
// the start.
func (s *EventService) Create(ctx context.Context, viewer models.Viewer, req dto.CreateEventRequest) (*models.Event, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to create events")
	}
	if err := s.requireStaff(ctx, viewer); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	genre := strings.ToLower(strings.TrimSpace(req.Genre))
	if err := s.validator.Struct(createEventInput{Genre: genre}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "genre is reserved for imported events")
	}
	if genre == "" {
		genre = models.GenreUncategorized
	}

	start := req.Start.UTC()
	end := start.Add(defaultEventLength)
	if req.End != nil && req.End.After(start) {
		end = req.End.UTC()
	}
	if end.Sub(start) > calendar.MaxEventSpan {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event runs longer than a year")
	}

	event := &models.Event{
		Title:       strings.TrimSpace(req.Title),
		Start:       &start,
		End:         &end,
		Genre:       genre,
		Location:    trimmedOrNil(req.Location),
		Description: trimmedOrNil(req.Description),
		Link:        trimmedOrNil(req.Link),
		UserID:      viewer.UserID,
		Source:      models.EventSourceCommunity,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.feed.Publish(models.EventChange{Kind: models.EventCreated, EventID: event.ID})
	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("genre", genre), zap.String("user_id", viewer.UserID))
	return event, nil
}

func (s *EventService) requireStaff(ctx context.Context, viewer models.Viewer) error {
	user, err := s.users.FindByID(ctx, viewer.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "only staff can create events")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	if user.Role != models.RoleStaff {
		return appErrors.Clone(appErrors.ErrForbidden, "only staff can create events")
	}
	return nil
}

// List returns events visible to the viewer, paginated.
func (s *EventService) List(ctx context.Context, viewer models.Viewer, query dto.ListEventsQuery) ([]models.Event, *models.Pagination, error) {
	filter := models.EventFilter{Genre: strings.TrimSpace(query.Genre), Page: query.Page, PageSize: query.PageSize}
	if query.Start != "" {
		from, err := s.parseBound(query.Start, false)
		if err != nil {
			return nil, nil, err
		}
		filter.From = &from
	}
	if query.End != "" {
		to, err := s.parseBound(query.End, true)
		if err != nil {
			return nil, nil, err
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "end must not be before start")
	}
	if !viewer.Authenticated() {
		filter.ExcludeGenres = []string{models.GenreTicketmaster}
	}

	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// parseBound accepts YYYY-MM-DD (expanded to the whole day) or RFC 3339.
func (s *EventService) parseBound(raw string, endOfDay bool) (time.Time, error) {
	if day, err := calendar.ParseDateKey(raw, s.cfg.Location); err == nil {
		from, to := calendar.DayBounds(day, s.cfg.Location)
		if endOfDay {
			return to, nil
		}
		return from, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "dates must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// Get returns one event. Events hidden from the viewer are reported as missing.
func (s *EventService) Get(ctx context.Context, viewer models.Viewer, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !calendar.Visible(*event, viewer) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return event, nil
}

// CalendarLink builds the external calendar template URL for an event.
func (s *EventService) CalendarLink(ctx context.Context, viewer models.Viewer, id string) (*dto.CalendarLink, error) {
	event, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	link, err := calendar.GoogleCalendarURL(*event)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "event has no start time")
	}
	return &dto.CalendarLink{EventID: event.ID, URL: link}, nil
}

// Delete removes an event owned by the viewer. After the delete it waits for the configured delay
// and re-reads the record; if the record is still there the deletion is reported as failed.
func (s *EventService) Delete(ctx context.Context, viewer models.Viewer, id string, confirmed bool) (*dto.DeleteResult, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to delete events")
	}
	if !confirmed {
		return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "confirm=true is required to delete an event")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.UserID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the event owner can delete it")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	if err := s.sleep(ctx, s.cfg.DeleteConfirmDelay); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deletion could not be confirmed")
	}

	if _, err := s.repo.FindByID(ctx, id); err == nil {
		s.logger.Warn("event still present after delete", zap.String("event_id", id))
		return nil, appErrors.Clone(appErrors.ErrDeleteNotConfirmed, "event still exists after deletion attempt")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "deletion could not be confirmed")
	}

	s.feed.Publish(models.EventChange{Kind: models.EventDeleted, EventID: id})
	s.logger.Info("event deleted", zap.String("event_id", id), zap.String("user_id", viewer.UserID))
	return &dto.DeleteResult{ID: id, Deleted: true, ConfirmedAt: time.Now().UTC()}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
