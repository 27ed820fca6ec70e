package models

import "time"

// Attendee marks one user's RSVP to one event. Presence means attending.
type Attendee struct {
	EventID   string    `db:"event_id" json:"eventId"`
	UserID    string    `db:"user_id" json:"userId"`
	UserName  string    `db:"user_name" json:"userName"`
	UserEmail string    `db:"user_email" json:"userEmail"`
	UserPhoto *string   `db:"user_photo" json:"userPhoto,omitempty"`
	JoinedAt  time.Time `db:"joined_at" json:"joinedAt"`
}
