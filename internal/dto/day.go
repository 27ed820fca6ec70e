package dto

import (
	"github.com/palace-events/events-api/internal/calendar"
	"github.com/palace-events/events-api/internal/models"
)

// EventActions lists what the viewer can do with an event.
type EventActions struct {
	Attending     bool   `json:"attending"`
	AttendeeCount int    `json:"attendeeCount"`
	CalendarURL   string `json:"calendarUrl,omitempty"`
	CanDelete     bool   `json:"canDelete"`
}

// DayEvent is an event with its viewer-specific actions.
type DayEvent struct {
	models.Event
	Actions EventActions `json:"actions"`
}

// GenreGroup collects a day's events of one genre.
type GenreGroup struct {
	Genre  string          `json:"genre"`
	Label  string          `json:"label"`
	Colour calendar.Colour `json:"colour"`
	Events []DayEvent      `json:"events"`
}

// DayDetail is the detail view for a date, optionally restricted to a genre.
type DayDetail struct {
	Date     string       `json:"date"`
	Genre    string       `json:"genre,omitempty"`
	Previous string       `json:"previous"`
	Next     string       `json:"next"`
	Groups   []GenreGroup `json:"groups"`
	Message  string       `json:"message,omitempty"`
}
