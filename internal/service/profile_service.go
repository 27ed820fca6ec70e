package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

type profileEventLister interface {
	ListAttending(ctx context.Context, userID string) ([]models.Event, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Event, error)
}

type currentUserLoader interface {
	CurrentUser(ctx context.Context, viewer models.Viewer) (*models.UserInfo, error)
}

// ProfileService assembles the signed-in user's page.
type ProfileService struct {
	users  currentUserLoader
	events profileEventLister
	logger *zap.Logger
}

// NewProfileService constructs the service.
func NewProfileService(users currentUserLoader, events profileEventLister, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, events: events, logger: logger}
}

// Profile returns the account with its role, the events it attends and the events it created.
func (s *ProfileService) Profile(ctx context.Context, viewer models.Viewer) (*dto.Profile, error) {
	user, err := s.users.CurrentUser(ctx, viewer)
	if err != nil {
		return nil, err
	}
	attending, err := s.events.ListAttending(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attending events")
	}
	created, err := s.events.ListByOwner(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list created events")
	}
	if attending == nil {
		attending = []models.Event{}
	}
	if created == nil {
		created = []models.Event{}
	}
	return &dto.Profile{User: *user, Attending: attending, Created: created}, nil
}
