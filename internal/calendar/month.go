package calendar

import (
	"fmt"
	"time"
)

// MonthLayout is the YYYY-MM layout of a month key.
const MonthLayout = "2006-01"

// Cell is one slot of a month grid. Blank cells pad the first week.
type Cell struct {
	Blank bool
	Date  time.Time
	Key   string
}

// ParseMonth returns the first day of the month named by key (YYYY-MM) in loc.
func ParseMonth(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, key, orLocal(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", key, err)
	}
	return t, nil
}

// MonthKey formats the month containing t.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// FirstOfMonth returns local midnight on the first of t's month.
func FirstOfMonth(t time.Time, loc *time.Location) time.Time {
	loc = orLocal(loc)
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// ShiftMonth moves the first of t's month by delta months, wrapping across years.
func ShiftMonth(t time.Time, delta int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(delta), 1, 0, 0, 0, 0, t.Location())
}

// MonthRange returns the first instant of the month and the last instant before the next one.
func MonthRange(first time.Time) (time.Time, time.Time) {
	start := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, first.Location())
	return start, ShiftMonth(start, 1).Add(-time.Nanosecond)
}

// MonthGrid lays out a month as leading blanks followed by one cell per day, with weeks starting
// on weekStart.
func MonthGrid(year int, month time.Month, weekStart time.Weekday, loc *time.Location) []Cell {
	loc = orLocal(loc)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	padding := (int(first.Weekday()) - int(weekStart) + 7) % 7
	days := ShiftMonth(first, 1).AddDate(0, 0, -1).Day()

	cells := make([]Cell, 0, padding+days)
	for i := 0; i < padding; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for d := 1; d <= days; d++ {
		day := time.Date(year, month, d, 0, 0, 0, 0, loc)
		cells = append(cells, Cell{Date: day, Key: day.Format(DateKeyLayout)})
	}
	return cells
}

// WeekdayLabels returns short weekday names starting at weekStart.
func WeekdayLabels(weekStart time.Weekday) []string {
	labels := make([]string, 7)
	for i := 0; i < 7; i++ {
		labels[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return labels
}
