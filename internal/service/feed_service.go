package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/calendar"
	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
	"github.com/palace-events/events-api/pkg/feedtoken"
	"github.com/palace-events/events-api/pkg/icalfeed"
)

// FeedScopeAttending grants read access to the events a user attends.
const FeedScopeAttending = "attending"

type feedSigner interface {
	Issue(userID, scope string) (string, time.Time, error)
	Verify(token string) (feedtoken.Claims, error)
}

// FeedService renders iCalendar downloads and personal subscription feeds.
type FeedService struct {
	events    overlappingEventLister
	event     eventReader
	attending attendingLister
	signer    feedSigner
	settings  CalendarSettings
	logger    *zap.Logger
	now       func() time.Time
}

// NewFeedService constructs the service.
func NewFeedService(events overlappingEventLister, event eventReader, attending attendingLister, signer feedSigner, settings CalendarSettings, logger *zap.Logger) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedService{
		events:    events,
		event:     event,
		attending: attending,
		signer:    signer,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
}

// Month renders every event visible to the viewer that overlaps the month.
func (s *FeedService) Month(ctx context.Context, month string, viewer models.Viewer) ([]byte, error) {
	loc := s.settings.location()
	first := calendar.FirstOfMonth(s.now(), loc)
	if month != "" {
		parsed, err := calendar.ParseMonth(month, loc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "month must be formatted as YYYY-MM")
		}
		first = parsed
	}
	from, to := calendar.MonthRange(first)
	events, err := s.events.ListOverlapping(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}
	return s.render("Palace Community Events "+first.Format("January 2006"), calendar.FilterVisible(events, viewer))
}

// Event renders one event.
func (s *FeedService) Event(ctx context.Context, viewer models.Viewer, id string) ([]byte, error) {
	event, err := s.event.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !calendar.Visible(*event, viewer) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	if !event.HasValidStart() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event has no start time")
	}
	return s.render(event.Title, []models.Event{*event})
}

// Link issues a subscription URL for the viewer's attending events. baseURL is the public origin.
func (s *FeedService) Link(viewer models.Viewer, baseURL string) (*dto.FeedLink, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to subscribe")
	}
	token, expiresAt, err := s.signer.Issue(viewer.UserID, FeedScopeAttending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue feed token")
	}
	return &dto.FeedLink{
		URL:       strings.TrimRight(baseURL, "/") + "/feeds/" + token + ".ics",
		ExpiresAt: expiresAt,
	}, nil
}

// Personal verifies a subscription token and renders the holder's attending events.
func (s *FeedService) Personal(ctx context.Context, token string) ([]byte, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		switch {
		case errors.Is(err, feedtoken.ErrMalformed):
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed feed token")
		case errors.Is(err, feedtoken.ErrExpired):
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "feed token expired")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid feed token")
		}
	}
	if claims.Scope != FeedScopeAttending {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "feed token scope not supported")
	}
	events, err := s.attending.ListAttending(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attending events")
	}
	// The holder is signed in as far as visibility goes.
	return s.render("My Palace Events", calendar.FilterVisible(events, models.Viewer{UserID: claims.UserID}))
}

func (s *FeedService) render(name string, events []models.Event) ([]byte, error) {
	feed := icalfeed.Feed{Name: name}
	for _, event := range events {
		if !event.HasValidStart() {
			s.logger.Debug("skipping event without start in feed", zap.String("event_id", event.ID))
			continue
		}
		start, end := event.Bounds()
		description := deref(event.Description)
		if link := deref(event.Link); link != "" {
			description = strings.TrimSpace(description + "\n\nMore info: " + link)
		}
		feed.Entries = append(feed.Entries, icalfeed.Entry{
			UID:         event.ID + "@palace-events",
			Summary:     event.Title,
			Description: description,
			Location:    deref(event.Location),
			URL:         deref(event.Link),
			Category:    calendar.DisplayGenre(event.GenreOrDefault()),
			Start:       start,
			End:         end,
			Created:     event.CreatedAt,
			Modified:    event.UpdatedAt,
		})
	}
	out, err := icalfeed.Render(feed, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar")
	}
	return out, nil
}
