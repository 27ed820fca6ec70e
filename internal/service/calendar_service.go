package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/calendar"
	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

type overlappingEventLister interface {
	ListOverlapping(ctx context.Context, from, to time.Time) ([]models.Event, error)
}

// CalendarSettings carries the wall-clock rules shared by the calendar views.
type CalendarSettings struct {
	Location  *time.Location
	WeekStart time.Weekday
}

func (c CalendarSettings) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// CalendarService renders month grids.
type CalendarService struct {
	events   overlappingEventLister
	settings CalendarSettings
	grouper  *calendar.Grouper
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewCalendarService constructs the service.
func NewCalendarService(events overlappingEventLister, settings CalendarSettings, metrics *MetricsService, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		events:   events,
		settings: settings,
		grouper:  calendar.NewGrouper(settings.location(), logger),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Month builds the grid for month (YYYY-MM, empty for the current month) as seen by viewer.
func (s *CalendarService) Month(ctx context.Context, month string, viewer models.Viewer) (*dto.MonthView, error) {
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

	start := time.Now()
	events, err := s.events.ListOverlapping(ctx, from, to)
	s.metrics.ObserveDBQuery("events_month", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	index := s.grouper.GroupWithin(calendar.FilterVisible(events, viewer), from, to)
	today := calendar.DateKey(s.now(), loc)

	view := &dto.MonthView{
		Month:    calendar.MonthKey(first),
		Label:    first.Format("January 2006"),
		Timezone: loc.String(),
		Weekdays: calendar.WeekdayLabels(s.settings.WeekStart),
		Previous: calendar.MonthKey(calendar.ShiftMonth(first, -1)),
		Next:     calendar.MonthKey(calendar.ShiftMonth(first, 1)),
	}
	for _, cell := range calendar.MonthGrid(first.Year(), first.Month(), s.settings.WeekStart, loc) {
		if cell.Blank {
			view.Cells = append(view.Cells, dto.DayCell{Blank: true})
			continue
		}
		out := dto.DayCell{
			Date:  cell.Key,
			Day:   cell.Date.Day(),
			Today: cell.Key == today,
			Href:  calendar.DayPath(cell.Key),
		}
		for _, genre := range index.Genres(cell.Key) {
			count := len(index[cell.Key][genre])
			out.Genres = append(out.Genres, dto.GenreControl{
				Genre:  genre,
				Label:  calendar.GenreLabel(genre, count),
				Count:  count,
				Colour: calendar.GenreColour(genre),
				Href:   calendar.GenrePath(cell.Key, genre),
			})
		}
		if len(out.Genres) > 0 {
			view.EventDays++
		}
		view.Cells = append(view.Cells, out)
	}
	return view, nil
}
