package dto

import "github.com/palace-events/events-api/internal/calendar"

// GenreControl is the per-genre link rendered inside a day cell.
type GenreControl struct {
	Genre  string          `json:"genre"`
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Colour calendar.Colour `json:"colour"`
	Href   string          `json:"href"`
}

// DayCell is one slot of the month grid. Blank cells pad the first week.
type DayCell struct {
	Blank  bool           `json:"blank"`
	Date   string         `json:"date,omitempty"`
	Day    int            `json:"day,omitempty"`
	Today  bool           `json:"today,omitempty"`
	Href   string         `json:"href,omitempty"`
	Genres []GenreControl `json:"genres,omitempty"`
}

// MonthView is the rendered calendar for one month.
type MonthView struct {
	Month     string    `json:"month"`
	Label     string    `json:"label"`
	Timezone  string    `json:"timezone"`
	Weekdays  []string  `json:"weekdays"`
	Previous  string    `json:"previous"`
	Next      string    `json:"next"`
	Cells     []DayCell `json:"cells"`
	EventDays int       `json:"eventDays"`
}
