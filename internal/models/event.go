package models

import "time"

const (
	// GenreTicketmaster is reserved for imported ticketed events and is hidden from anonymous viewers.
	GenreTicketmaster = "ticketmaster"
	// GenreUncategorized replaces an empty genre.
	GenreUncategorized = "uncategorized"
)

// EventSource records how an event entered the store.
type EventSource string

const (
	EventSourceCommunity EventSource = "community"
	EventSourceImport    EventSource = "import"
)

// Event is a calendar entry. Start and End are nullable so malformed rows can be read and skipped.
type Event struct {
	ID          string      `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Start       *time.Time  `db:"start_at" json:"start"`
	End         *time.Time  `db:"end_at" json:"end"`
	Genre       string      `db:"genre" json:"genre"`
	Location    *string     `db:"location" json:"location,omitempty"`
	Description *string     `db:"description" json:"description,omitempty"`
	Link        *string     `db:"link" json:"link,omitempty"`
	UserID      string      `db:"user_id" json:"userId"`
	ExternalID  *string     `db:"external_id" json:"externalId,omitempty"`
	Source      EventSource `db:"source" json:"source"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// GenreOrDefault returns the event genre, or "uncategorized" when empty.
func (e Event) GenreOrDefault() string {
	if e.Genre == "" {
		return GenreUncategorized
	}
	return e.Genre
}

// HasValidStart reports whether the event has a usable start timestamp.
func (e Event) HasValidStart() bool {
	return e.Start != nil && !e.Start.IsZero()
}

// Bounds returns the event interval; a missing or inverted end collapses to start.
func (e Event) Bounds() (time.Time, time.Time) {
	start := *e.Start
	end := start
	if e.End != nil && !e.End.IsZero() && !e.End.Before(start) {
		end = *e.End
	}
	return start, end
}

// EventFilter narrows down events. A nil bound is open.
type EventFilter struct {
	From          *time.Time
	To            *time.Time
	Genre         string
	ExcludeGenres []string
	UserID        string
	Page          int
	PageSize      int
}

// EventChangeKind names a mutation published to subscribers.
type EventChangeKind string

const (
	EventCreated        EventChangeKind = "created"
	EventDeleted        EventChangeKind = "deleted"
	EventAttendeesMoved EventChangeKind = "attendees"
)

// EventChange is a notice that the store changed.
type EventChange struct {
	Kind    EventChangeKind `json:"kind"`
	EventID string          `json:"eventId"`
	At      time.Time       `json:"at"`
}
