package dto

import "time"

// CreateEventRequest is the payload of POST /events.
type CreateEventRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Start       *time.Time `json:"start" validate:"required"`
	End         *time.Time `json:"end"`
	Genre       string     `json:"genre" validate:"omitempty,max=50"`
	Location    *string    `json:"location" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Link        *string    `json:"link" validate:"omitempty,url"`
}

// ListEventsQuery binds GET /events.
type ListEventsQuery struct {
	Start    string `form:"start"`
	End      string `form:"end"`
	Genre    string `form:"genre"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// DeleteResult reports a confirmed deletion.
type DeleteResult struct {
	ID          string    `json:"id"`
	Deleted     bool      `json:"deleted"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// CalendarLink is an external "add to calendar" URL.
type CalendarLink struct {
	EventID string `json:"eventId"`
	URL     string `json:"url"`
}

// AttendanceStatus is the viewer's RSVP state for an event.
type AttendanceStatus struct {
	EventID       string `json:"eventId"`
	Attending     bool   `json:"attending"`
	AttendeeCount int    `json:"attendeeCount"`
}
