package service

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/palace-events/events-api/internal/models"
)

type memEventStore struct {
	mu        sync.Mutex
	events    map[string]models.Event
	attending map[string][]string
	seq       int
	// keepOnDelete simulates a store that acknowledges a delete without removing the record.
	keepOnDelete bool
	creates      int
	lastFilter   models.EventFilter
}

func newMemEventStore(events ...models.Event) *memEventStore {
	s := &memEventStore{events: map[string]models.Event{}, attending: map[string][]string{}}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *memEventStore) ListOverlapping(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if !e.HasValidStart() {
			out = append(out, e)
			continue
		}
		start, end := e.Bounds()
		if !start.After(to) && !end.Before(from) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memEventStore) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	var out []models.Event
	for _, e := range s.events {
		excluded := false
		for _, g := range filter.ExcludeGenres {
			if e.Genre == g {
				excluded = true
			}
		}
		if excluded || (filter.Genre != "" && e.Genre != filter.Genre) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *memEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s *memEventStore) FindByExternalID(ctx context.Context, externalID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ExternalID != nil && *e.ExternalID == externalID {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memEventStore) ListByOwner(ctx context.Context, userID string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memEventStore) ListAttending(ctx context.Context, userID string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, id := range s.attending[userID] {
		if e, ok := s.events[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memEventStore) Create(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.creates++
	if event.ID == "" {
		event.ID = "ev-" + strconv.Itoa(s.seq)
	}
	s.events[event.ID] = *event
	return nil
}

func (s *memEventStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return sql.ErrNoRows
	}
	if !s.keepOnDelete {
		delete(s.events, id)
	}
	return nil
}

type memAttendees struct {
	mu    sync.Mutex
	rows  map[string]map[string]models.Attendee
	added int
}

func newMemAttendees() *memAttendees {
	return &memAttendees{rows: map[string]map[string]models.Attendee{}}
}

func (m *memAttendees) Add(ctx context.Context, a *models.Attendee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[a.EventID] == nil {
		m.rows[a.EventID] = map[string]models.Attendee{}
	}
	m.rows[a.EventID][a.UserID] = *a
	m.added++
	return nil
}

func (m *memAttendees) Remove(ctx context.Context, eventID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[eventID], userID)
	return nil
}

func (m *memAttendees) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[eventID][userID]
	return ok, nil
}

func (m *memAttendees) Count(ctx context.Context, eventID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[eventID]), nil
}

func (m *memAttendees) CountByEvents(ctx context.Context, ids []string) (map[string]int, error) {
	out := map[string]int{}
	for _, id := range ids {
		n, _ := m.Count(ctx, id)
		out[id] = n
	}
	return out, nil
}

func (m *memAttendees) AttendingSet(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	if userID == "" {
		return out, nil
	}
	for _, id := range ids {
		ok, _ := m.Exists(ctx, id, userID)
		if ok {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memAttendees) ListByEvent(ctx context.Context, eventID string) ([]models.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Attendee, 0, len(m.rows[eventID]))
	for _, a := range m.rows[eventID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

type memUsers struct {
	byID map[string]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{byID: map[string]*models.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + strconv.Itoa(len(m.byID)+1)
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memUsers) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	u, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	return nil
}

type recordingFeed struct {
	mu      sync.Mutex
	changes []models.EventChange
}

func (r *recordingFeed) Publish(change models.EventChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recordingFeed) published() []models.EventChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.EventChange(nil), r.changes...)
}

func ts(raw string) *time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return &t
}

func strPtr(s string) *string { return &s }

func anonymous() models.Viewer { return models.Viewer{} }

func signedIn(id string) models.Viewer {
	return models.Viewer{UserID: id, Role: models.RoleCommunity}
}
