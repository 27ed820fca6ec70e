package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palace-events/events-api/internal/models"
)

func TestAttendeeRepositoryAddIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (event_id, user_id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (event_id, user_id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 0))

	attendee := &models.Attendee{EventID: "e1", UserID: "u1", UserName: "Ada", UserEmail: "ada@example.com"}
	require.NoError(t, repo.Add(context.Background(), attendee))
	assert.False(t, attendee.JoinedAt.IsZero())
	require.NoError(t, repo.Add(context.Background(), attendee))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendeeRepositoryExistsAndCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM event_attendees WHERE event_id = $1 AND user_id = $2)")).
		WithArgs("e1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM event_attendees WHERE event_id = $1")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	exists, err := repo.Exists(context.Background(), "e1", "u1")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := repo.Count(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendeeRepositoryBatchLookups(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT event_id, COUNT(*) AS total FROM event_attendees WHERE event_id = ANY($1) GROUP BY event_id")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "total"}).AddRow("e1", 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT event_id FROM event_attendees WHERE user_id = $1 AND event_id = ANY($2)")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("e2"))

	counts, err := repo.CountByEvents(context.Background(), []string{"e1", "e2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"e1": 2}, counts)

	set, err := repo.AttendingSet(context.Background(), "u1", []string{"e1", "e2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"e2": true}, set)

	anon, err := repo.AttendingSet(context.Background(), "", []string{"e1"})
	require.NoError(t, err)
	assert.Empty(t, anon)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendeeRepositoryRemoveAndList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendeeRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2")).
		WithArgs("e1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM event_attendees WHERE event_id = $1 ORDER BY joined_at ASC")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "user_id", "user_name", "user_email", "user_photo", "joined_at"}).
			AddRow("e1", "u2", "Grace", "grace@example.com", nil, now))

	require.NoError(t, repo.Remove(context.Background(), "e1", "u1"))
	list, err := repo.ListByEvent(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Grace", list[0].UserName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
