package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/palace-events/events-api/internal/models"
)

// AttendeeRepository stores RSVPs in the event_attendees table.
type AttendeeRepository struct {
	db *sqlx.DB
}

// NewAttendeeRepository constructs the repository.
func NewAttendeeRepository(db *sqlx.DB) *AttendeeRepository {
	return &AttendeeRepository{db: db}
}

// Add records an RSVP. Adding an existing RSVP is a no-op.
func (r *AttendeeRepository) Add(ctx context.Context, attendee *models.Attendee) error {
	if attendee.JoinedAt.IsZero() {
		attendee.JoinedAt = time.Now().UTC()
	}
	const query = `INSERT INTO event_attendees (event_id, user_id, user_name, user_email, user_photo, joined_at) VALUES (:event_id, :user_id, :user_name, :user_email, :user_photo, :joined_at) ON CONFLICT (event_id, user_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, attendee); err != nil {
		return fmt.Errorf("add attendee: %w", err)
	}
	return nil
}

// Remove deletes an RSVP.
func (r *AttendeeRepository) Remove(ctx context.Context, eventID, userID string) error {
	const query = `DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, eventID, userID); err != nil {
		return fmt.Errorf("remove attendee: %w", err)
	}
	return nil
}

// Exists reports whether the user attends the event.
func (r *AttendeeRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM event_attendees WHERE event_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, eventID, userID); err != nil {
		return false, fmt.Errorf("check attendee: %w", err)
	}
	return exists, nil
}

// Count returns the number of attendees of an event.
func (r *AttendeeRepository) Count(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM event_attendees WHERE event_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, eventID); err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return total, nil
}

type eventCount struct {
	EventID string `db:"event_id"`
	Total   int    `db:"total"`
}

// CountByEvents returns attendee counts keyed by event id. Events without attendees are absent.
func (r *AttendeeRepository) CountByEvents(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT event_id, COUNT(*) AS total FROM event_attendees WHERE event_id = ANY($1) GROUP BY event_id`
	var rows []eventCount
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(eventIDs)); err != nil {
		return nil, fmt.Errorf("count attendees by event: %w", err)
	}
	for _, row := range rows {
		counts[row.EventID] = row.Total
	}
	return counts, nil
}

// AttendingSet returns which of the given events the user attends.
func (r *AttendeeRepository) AttendingSet(ctx context.Context, userID string, eventIDs []string) (map[string]bool, error) {
	set := make(map[string]bool, len(eventIDs))
	if userID == "" || len(eventIDs) == 0 {
		return set, nil
	}
	const query = `SELECT event_id FROM event_attendees WHERE user_id = $1 AND event_id = ANY($2)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID, pq.Array(eventIDs)); err != nil {
		return nil, fmt.Errorf("list attending set: %w", err)
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ListByEvent returns the attendees of an event in RSVP order.
func (r *AttendeeRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Attendee, error) {
	const query = `SELECT event_id, user_id, user_name, user_email, user_photo, joined_at FROM event_attendees WHERE event_id = $1 ORDER BY joined_at ASC`
	var attendees []models.Attendee
	if err := r.db.SelectContext(ctx, &attendees, query, eventID); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}
