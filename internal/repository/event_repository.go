package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/palace-events/events-api/internal/models"
)

const eventColumns = "id, title, start_at, end_at, genre, location, description, link, user_id, external_id, source, created_at, updated_at"

// effectiveEnd treats a missing or inverted end as the start.
const effectiveEnd = "GREATEST(end_at, start_at)"

// EventRepository provides persistence for calendar events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListOverlapping returns events whose interval intersects [from, to], ordered by start.
func (r *EventRepository) ListOverlapping(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE start_at <= $1 AND %s >= $2 ORDER BY start_at ASC, id ASC", eventColumns, effectiveEnd)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, to, from); err != nil {
		return nil, fmt.Errorf("list overlapping events: %w", err)
	}
	return events, nil
}

// List returns events matching the filter with the total count.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	baseQuery := "FROM events WHERE start_at IS NOT NULL"
	var conditions []string
	var args []interface{}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", effectiveEnd, len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Genre != "" {
		conditions = append(conditions, fmt.Sprintf("genre = $%d", len(args)+1))
		args = append(args, filter.Genre)
	}
	if len(filter.ExcludeGenres) > 0 {
		conditions = append(conditions, fmt.Sprintf("genre <> ALL($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ExcludeGenres))
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY start_at ASC, id ASC LIMIT %d OFFSET %d", eventColumns, baseQuery, pageSize, offset)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// FindByID returns a single event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

// FindByExternalID returns the first event imported from the given external record.
func (r *EventRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE external_id = $1 ORDER BY created_at ASC LIMIT 1", eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event by external id: %w", err)
	}
	return &event, nil
}

// ListByOwner returns the events created by a user, newest first.
func (r *EventRepository) ListByOwner(ctx context.Context, userID string) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE user_id = $1 ORDER BY start_at DESC NULLS LAST", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, userID); err != nil {
		return nil, fmt.Errorf("list events by owner: %w", err)
	}
	return events, nil
}

// ListAttending returns the events a user has RSVP'd to, ordered by start.
func (r *EventRepository) ListAttending(ctx context.Context, userID string) ([]models.Event, error) {
	const query = `SELECT e.id, e.title, e.start_at, e.end_at, e.genre, e.location, e.description, e.link, e.user_id, e.external_id, e.source, e.created_at, e.updated_at
FROM events e
JOIN event_attendees a ON a.event_id = e.id
WHERE a.user_id = $1
ORDER BY e.start_at ASC NULLS LAST`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, userID); err != nil {
		return nil, fmt.Errorf("list attending events: %w", err)
	}
	return events, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if event.Source == "" {
		event.Source = models.EventSourceCommunity
	}

	const query = `INSERT INTO events (id, title, start_at, end_at, genre, location, description, link, user_id, external_id, source, created_at, updated_at) VALUES (:id, :title, :start_at, :end_at, :genre, :location, :description, :link, :user_id, :external_id, :source, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Delete removes an event; attendee rows cascade.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM events WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
