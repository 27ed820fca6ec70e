// Package calendar holds the pure date logic behind the community calendar: date keys, the
// day/genre index, month grids, visibility and external calendar links.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/models"
)

// DateKeyLayout is the YYYY-MM-DD layout of a date key.
const DateKeyLayout = "2006-01-02"

// DayIndex maps date key -> genre -> events occupying that date.
type DayIndex map[string]map[string][]models.Event

// Genres returns the genres present on a date, sorted.
func (idx DayIndex) Genres(dateKey string) []string {
	bucket := idx[dateKey]
	genres := make([]string, 0, len(bucket))
	for g := range bucket {
		genres = append(genres, g)
	}
	sort.Strings(genres)
	return genres
}

// DateKey formats t as the wall-clock date in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(orLocal(loc)).Format(DateKeyLayout)
}

// ParseDateKey returns local midnight of the date named by key.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, key, orLocal(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// MaxEventSpan bounds how long a stored event may run.
const MaxEventSpan = 366 * 24 * time.Hour

// DayBounds returns the first and last instant of the date in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	loc = orLocal(loc)
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return start, next.Add(-time.Nanosecond)
}

// Grouper builds the day/genre index. It keeps no state between calls.
type Grouper struct {
	Location *time.Location
	Logger   *zap.Logger
}

// NewGrouper constructs a grouper for the given wall-clock location.
func NewGrouper(loc *time.Location, logger *zap.Logger) *Grouper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grouper{Location: orLocal(loc), Logger: logger}
}

// Group places every event under each date it spans (inclusive) and under its genre.
// Events without a usable start are dropped. Buckets are ordered by start, then id, so the
// result does not depend on input order.
func (g *Grouper) Group(events []models.Event) DayIndex {
	return g.group(events, nil)
}

// GroupWithin is Group restricted to the dates from..to (inclusive, in the grouper's
// location). Buckets inside the window are identical to Group's.
func (g *Grouper) GroupWithin(events []models.Event, from, to time.Time) DayIndex {
	loc := orLocal(g.Location)
	window := &dateRange{first: civilDate(from, loc), last: civilDate(to, loc)}
	return g.group(events, window)
}

func (g *Grouper) group(events []models.Event, window *dateRange) DayIndex {
	loc := orLocal(g.Location)
	idx := DayIndex{}
	for _, event := range events {
		if !event.HasValidStart() {
			g.logger().Debug("dropping event without start", zap.String("event_id", event.ID), zap.String("title", event.Title))
			continue
		}
		genre := event.GenreOrDefault()
		span := eventDates(event, loc)
		if window != nil {
			span = span.clip(*window)
		}
		for day := span.first; !day.After(span.last); day = day.AddDate(0, 0, 1) {
			key := day.Format(DateKeyLayout)
			bucket, ok := idx[key]
			if !ok {
				bucket = map[string][]models.Event{}
				idx[key] = bucket
			}
			bucket[genre] = append(bucket[genre], event)
		}
	}
	for _, bucket := range idx {
		for _, list := range bucket {
			sortEvents(list)
		}
	}
	return idx
}

// OccursOn reports whether the event's inclusive date span covers dateKey.
func OccursOn(event models.Event, dateKey string, loc *time.Location) bool {
	if !event.HasValidStart() {
		return false
	}
	day, err := time.Parse(DateKeyLayout, dateKey)
	if err != nil {
		return false
	}
	span := eventDates(event, orLocal(loc))
	return !day.Before(span.first) && !day.After(span.last)
}

// dateRange is an inclusive run of calendar dates. Dates are held as UTC midnights so stepping
// is unaffected by transitions in the wall-clock zone.
type dateRange struct {
	first, last time.Time
}

func (r dateRange) clip(window dateRange) dateRange {
	if r.first.Before(window.first) {
		r.first = window.first
	}
	if r.last.After(window.last) {
		r.last = window.last
	}
	return r
}

func eventDates(event models.Event, loc *time.Location) dateRange {
	start, end := event.Bounds()
	return dateRange{first: civilDate(start, loc), last: civilDate(end, loc)}
}

// civilDate returns t's wall-clock date in loc as a UTC midnight.
func civilDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func sortEvents(list []models.Event) {
	sort.SliceStable(list, func(i, j int) bool {
		si, sj := *list[i].Start, *list[j].Start
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return list[i].ID < list[j].ID
	})
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

func (g *Grouper) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}
