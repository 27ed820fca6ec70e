package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

func TestProfileServiceProfile(t *testing.T) {
	users := newMemUsers(&models.User{ID: "u1", Email: "ada@example.com", DisplayName: "Ada", Role: models.RoleStaff})
	store := newMemEventStore(
		models.Event{ID: "mine", Title: "Workshop", Start: ts("2024-06-03T10:00:00Z"), UserID: "u1"},
		models.Event{ID: "theirs", Title: "Jazz", Start: ts("2024-06-01T19:00:00Z"), UserID: "u2"},
	)
	store.attending["u1"] = []string{"theirs"}
	auth := NewAuthService(users, nil, nil, AuthConfig{AccessTokenSecret: "s", AccessTokenExpiry: time.Hour})
	svc := NewProfileService(auth, store, nil)

	profile, err := svc.Profile(context.Background(), signedIn("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, profile.User.Role)
	require.Len(t, profile.Attending, 1)
	assert.Equal(t, "theirs", profile.Attending[0].ID)
	require.Len(t, profile.Created, 1)
	assert.Equal(t, "mine", profile.Created[0].ID)

	_, err = svc.Profile(context.Background(), anonymous())
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
