package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/calendar"
	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

type attendeeLookup interface {
	CountByEvents(ctx context.Context, eventIDs []string) (map[string]int, error)
	AttendingSet(ctx context.Context, userID string, eventIDs []string) (map[string]bool, error)
}

// DayService renders the detail view of a single date.
type DayService struct {
	events    overlappingEventLister
	attendees attendeeLookup
	settings  CalendarSettings
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewDayService constructs the service.
func NewDayService(events overlappingEventLister, attendees attendeeLookup, settings CalendarSettings, metrics *MetricsService, logger *zap.Logger) *DayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DayService{events: events, attendees: attendees, settings: settings, metrics: metrics, logger: logger}
}

// Detail re-reads the store for dateKey, independently of any month index, and groups the
// events the viewer may see by genre. A non-empty genre restricts the result to that genre.
func (s *DayService) Detail(ctx context.Context, dateKey, genre string, viewer models.Viewer) (*dto.DayDetail, error) {
	loc := s.settings.location()
	day, err := calendar.ParseDateKey(dateKey, loc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be formatted as YYYY-MM-DD")
	}
	genre = strings.TrimSpace(genre)
	dayStart, dayEnd := calendar.DayBounds(day, loc)

	start := time.Now()
	candidates, err := s.events.ListOverlapping(ctx, dayStart, dayEnd)
	s.metrics.ObserveDBQuery("events_day", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	var events []models.Event
	for _, e := range candidates {
		if !calendar.OccursOn(e, dateKey, loc) || !calendar.Visible(e, viewer) {
			continue
		}
		if genre != "" && e.GenreOrDefault() != genre {
			continue
		}
		events = append(events, e)
	}

	detail := &dto.DayDetail{
		Date:     dateKey,
		Genre:    genre,
		Previous: calendar.DayPath(calendar.DateKey(day.AddDate(0, 0, -1), loc)),
		Next:     calendar.DayPath(calendar.DateKey(day.AddDate(0, 0, 1), loc)),
		Groups:   []dto.GenreGroup{},
	}
	if len(events) == 0 {
		if genre != "" {
			detail.Message = "No events for genre: " + genre
		} else {
			detail.Message = "No events scheduled for this day."
		}
		return detail, nil
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	counts, err := s.attendees.CountByEvents(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendees")
	}
	attending, err := s.attendees.AttendingSet(ctx, viewer.UserID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	groups := map[string][]dto.DayEvent{}
	for _, e := range events {
		link, err := calendar.GoogleCalendarURL(e)
		if err != nil {
			s.logger.Debug("no calendar link for event", zap.String("event_id", e.ID), zap.Error(err))
		}
		groups[e.GenreOrDefault()] = append(groups[e.GenreOrDefault()], dto.DayEvent{
			Event: e,
			Actions: dto.EventActions{
				Attending:     attending[e.ID],
				AttendeeCount: counts[e.ID],
				CalendarURL:   link,
				CanDelete:     viewer.Authenticated() && viewer.UserID == e.UserID,
			},
		})
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		list := groups[name]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Start.Before(*list[j].Start) })
		detail.Groups = append(detail.Groups, dto.GenreGroup{
			Genre:  name,
			Label:  calendar.DisplayGenre(name),
			Colour: calendar.GenreColour(name),
			Events: list,
		})
	}
	return detail, nil
}
