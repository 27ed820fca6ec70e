package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

func TestAttendanceServiceAttendAndUnattend(t *testing.T) {
	store := newMemEventStore(models.Event{ID: "e1", Title: "Jazz", Start: ts("2024-06-01T19:00:00Z"), Genre: "music"})
	attendees := newMemAttendees()
	feed := &recordingFeed{}
	svc := NewAttendanceService(store, attendees, store, feed, nil)
	viewer := models.Viewer{UserID: "u1", DisplayName: "Ada", Email: "ada@example.com"}

	status, err := svc.Attend(context.Background(), viewer, "e1")
	require.NoError(t, err)
	assert.True(t, status.Attending)
	assert.Equal(t, 1, status.AttendeeCount)
	assert.Equal(t, "Ada", attendees.rows["e1"]["u1"].UserName)

	status, err = svc.Attend(context.Background(), viewer, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.AttendeeCount)

	_, err = svc.Unattend(context.Background(), viewer, "e1", false)
	assert.True(t, appErrors.Is(err, appErrors.ErrConfirmationRequired))

	status, err = svc.Unattend(context.Background(), viewer, "e1", true)
	require.NoError(t, err)
	assert.False(t, status.Attending)
	assert.Zero(t, status.AttendeeCount)
	assert.Len(t, feed.published(), 3)
}

func TestAttendanceServiceRejectsAnonymous(t *testing.T) {
	store := newMemEventStore(models.Event{ID: "e1", Title: "Jazz", Start: ts("2024-06-01T19:00:00Z")})
	svc := NewAttendanceService(store, newMemAttendees(), store, &recordingFeed{}, nil)

	_, err := svc.Attend(context.Background(), anonymous(), "e1")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Unattend(context.Background(), anonymous(), "e1", true)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ListMine(context.Background(), anonymous())
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAttendanceServiceStatus(t *testing.T) {
	store := newMemEventStore(
		models.Event{ID: "e1", Title: "Jazz", Start: ts("2024-06-01T19:00:00Z")},
		models.Event{ID: "tm", Title: "Arena", Start: ts("2024-06-01T19:00:00Z"), Genre: models.GenreTicketmaster},
	)
	attendees := newMemAttendees()
	require.NoError(t, attendees.Add(context.Background(), &models.Attendee{EventID: "e1", UserID: "u1"}))
	svc := NewAttendanceService(store, attendees, store, &recordingFeed{}, nil)

	status, err := svc.Status(context.Background(), anonymous(), "e1")
	require.NoError(t, err)
	assert.False(t, status.Attending)
	assert.Equal(t, 1, status.AttendeeCount)

	status, err = svc.Status(context.Background(), signedIn("u1"), "e1")
	require.NoError(t, err)
	assert.True(t, status.Attending)

	_, err = svc.Status(context.Background(), anonymous(), "tm")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Status(context.Background(), anonymous(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAttendanceServiceListMine(t *testing.T) {
	store := newMemEventStore(models.Event{ID: "e1", Title: "Jazz", Start: ts("2024-06-01T19:00:00Z")})
	store.attending["u1"] = []string{"e1"}
	svc := NewAttendanceService(store, newMemAttendees(), store, &recordingFeed{}, nil)

	events, err := svc.ListMine(context.Background(), signedIn("u1"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Jazz", events[0].Title)
}
