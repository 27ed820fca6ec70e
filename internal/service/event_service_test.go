package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

func newTestEventService(store *memEventStore, feed *recordingFeed) *EventService {
	users := newMemUsers(
		&models.User{ID: "staff-1", Role: models.RoleStaff},
		&models.User{ID: "member-1", Role: models.RoleCommunity},
	)
	svc := NewEventService(store, users, feed, nil, nil, EventConfig{DeleteConfirmDelay: time.Second, Location: time.UTC})
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func TestEventServiceCreateRequiresStaff(t *testing.T) {
	store := newMemEventStore()
	svc := newTestEventService(store, &recordingFeed{})
	req := dto.CreateEventRequest{Title: "Open mic", Start: ts("2024-06-01T19:00:00Z")}

	_, err := svc.Create(context.Background(), anonymous(), req)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)

	_, err = svc.Create(context.Background(), signedIn("member-1"), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Create(context.Background(), signedIn("ghost"), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Zero(t, store.creates)
}

func TestEventServiceCreateCorrectsEnd(t *testing.T) {
	store := newMemEventStore()
	feed := &recordingFeed{}
	svc := newTestEventService(store, feed)

	event, err := svc.Create(context.Background(), signedIn("staff-1"), dto.CreateEventRequest{
		Title: "  Poetry night ",
		Start: ts("2024-06-01T19:00:00Z"),
		End:   ts("2024-06-01T18:00:00Z"),
		Genre: "Performance",
	})
	require.NoError(t, err)

	assert.Equal(t, "Poetry night", event.Title)
	assert.Equal(t, "performance", event.Genre)
	assert.Equal(t, "staff-1", event.UserID)
	assert.Equal(t, ts("2024-06-01T21:00:00Z").UTC(), event.End.UTC())
	require.Len(t, feed.published(), 1)
	assert.Equal(t, models.EventCreated, feed.published()[0].Kind)
}

func TestEventServiceCreateDefaultsGenreAndKeepsValidEnd(t *testing.T) {
	svc := newTestEventService(newMemEventStore(), &recordingFeed{})

	event, err := svc.Create(context.Background(), signedIn("staff-1"), dto.CreateEventRequest{
		Title: "Craft fair",
		Start: ts("2024-06-01T10:00:00Z"),
		End:   ts("2024-06-02T16:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.GenreUncategorized, event.Genre)
	assert.Equal(t, ts("2024-06-02T16:00:00Z").UTC(), event.End.UTC())
}

func TestEventServiceCreateRejectsReservedGenre(t *testing.T) {
	store := newMemEventStore()
	svc := newTestEventService(store, &recordingFeed{})

	_, err := svc.Create(context.Background(), signedIn("staff-1"), dto.CreateEventRequest{
		Title: "Sneaky",
		Start: ts("2024-06-01T10:00:00Z"),
		Genre: " Ticketmaster ",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, store.creates)
}

func TestEventServiceDeleteRequiresConfirmationAndOwnership(t *testing.T) {
	store := newMemEventStore(models.Event{ID: "e1", Title: "Gig", Start: ts("2024-06-01T19:00:00Z"), UserID: "owner"})
	svc := newTestEventService(store, &recordingFeed{})

	_, err := svc.Delete(context.Background(), anonymous(), "e1", true)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Delete(context.Background(), signedIn("owner"), "e1", false)
	require.Error(t, err)
	assert.Equal(t, http.StatusPreconditionRequired, appErrors.FromError(err).Status)

	_, err = svc.Delete(context.Background(), signedIn("someone-else"), "e1", true)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Delete(context.Background(), signedIn("owner"), "missing", true)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, stillThere := store.events["e1"]
	assert.True(t, stillThere)
}

func TestEventServiceDeleteReportsFailureWhenRecordSurvives(t *testing.T) {
	store := newMemEventStore(models.Event{ID: "e1", Title: "Gig", Start: ts("2024-06-01T19:00:00Z"), UserID: "owner"})
	store.keepOnDelete = true
	feed := &recordingFeed{}
	svc := newTestEventService(store, feed)

	var slept time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	result, err := svc.Delete(context.Background(), signedIn("owner"), "e1", true)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, appErrors.Is(err, appErrors.ErrDeleteNotConfirmed))
	assert.Equal(t, time.Second, slept)
	assert.Empty(t, feed.published())
}

func TestEventServiceDeleteConfirmsRemoval(t *testing.T) {
	store := newMemEventStore(models.Event{ID: "e1", Title: "Gig", Start: ts("2024-06-01T19:00:00Z"), UserID: "owner"})
	feed := &recordingFeed{}
	svc := newTestEventService(store, feed)

	result, err := svc.Delete(context.Background(), signedIn("owner"), "e1", true)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Equal(t, "e1", result.ID)
	require.Len(t, feed.published(), 1)
	assert.Equal(t, models.EventDeleted, feed.published()[0].Kind)
}

func TestEventServiceDeleteHonoursCancellation(t *testing.T) {
	store := newMemEventStore(models.Event{ID: "e1", Title: "Gig", Start: ts("2024-06-01T19:00:00Z"), UserID: "owner"})
	svc := newTestEventService(store, &recordingFeed{})
	svc.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Delete(ctx, signedIn("owner"), "e1", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEventServiceListHidesTicketedEventsFromAnonymous(t *testing.T) {
	store := newMemEventStore(
		models.Event{ID: "a", Title: "Jazz", Start: ts("2024-06-01T19:00:00Z"), Genre: "music"},
		models.Event{ID: "b", Title: "Arena show", Start: ts("2024-06-01T20:00:00Z"), Genre: models.GenreTicketmaster},
	)
	svc := newTestEventService(store, &recordingFeed{})

	events, page, err := svc.List(context.Background(), anonymous(), dto.ListEventsQuery{Start: "2024-06-01", End: "2024-06-30"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, []string{models.GenreTicketmaster}, store.lastFilter.ExcludeGenres)
	assert.Equal(t, time.Date(2024, 6, 30, 23, 59, 59, 999999999, time.UTC), *store.lastFilter.To)

	events, _, err = svc.List(context.Background(), signedIn("member-1"), dto.ListEventsQuery{})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestEventServiceListRejectsBadBounds(t *testing.T) {
	svc := newTestEventService(newMemEventStore(), &recordingFeed{})

	_, _, err := svc.List(context.Background(), anonymous(), dto.ListEventsQuery{Start: "June"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, _, err = svc.List(context.Background(), anonymous(), dto.ListEventsQuery{Start: "2024-06-10", End: "2024-06-01"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEventServiceGetAppliesVisibility(t *testing.T) {
	store := newMemEventStore(models.Event{ID: "tm", Title: "Arena show", Start: ts("2024-06-01T20:00:00Z"), Genre: models.GenreTicketmaster})
	svc := newTestEventService(store, &recordingFeed{})

	_, err := svc.Get(context.Background(), anonymous(), "tm")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	event, err := svc.Get(context.Background(), signedIn("member-1"), "tm")
	require.NoError(t, err)
	assert.Equal(t, "Arena show", event.Title)
}

func TestEventServiceCalendarLink(t *testing.T) {
	store := newMemEventStore(
		models.Event{ID: "e1", Title: "Jazz", Start: ts("2024-06-01T19:00:00Z"), End: ts("2024-06-01T21:00:00Z"), Genre: "music"},
		models.Event{ID: "broken", Title: "No start"},
	)
	svc := newTestEventService(store, &recordingFeed{})

	link, err := svc.CalendarLink(context.Background(), anonymous(), "e1")
	require.NoError(t, err)
	assert.Contains(t, link.URL, "dates=20240601T190000Z%2F20240601T210000Z")

	_, err = svc.CalendarLink(context.Background(), anonymous(), "broken")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEventServiceCreateRejectsEndlessEvents(t *testing.T) {
	store := newMemEventStore()
	svc := newTestEventService(store, &recordingFeed{})

	_, err := svc.Create(context.Background(), signedIn("staff-1"), dto.CreateEventRequest{
		Title: "Residency",
		Start: ts("2024-06-01T10:00:00Z"),
		End:   ts("2026-06-01T10:00:00Z"),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, store.creates)
}
