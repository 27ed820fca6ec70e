package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/calendar"
	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

type eventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type attendeeStore interface {
	Add(ctx context.Context, attendee *models.Attendee) error
	Remove(ctx context.Context, eventID, userID string) error
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	Count(ctx context.Context, eventID string) (int, error)
}

type attendingLister interface {
	ListAttending(ctx context.Context, userID string) ([]models.Event, error)
}

// AttendanceService manages RSVPs.
type AttendanceService struct {
	events    eventReader
	attendees attendeeStore
	attending attendingLister
	feed      changePublisher
	logger    *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(events eventReader, attendees attendeeStore, attending attendingLister, feed changePublisher, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{events: events, attendees: attendees, attending: attending, feed: feed, logger: logger}
}

// Attend records the viewer's RSVP. Attending twice is harmless.
func (s *AttendanceService) Attend(ctx context.Context, viewer models.Viewer, eventID string) (*dto.AttendanceStatus, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to attend events")
	}
	if _, err := s.visibleEvent(ctx, viewer, eventID); err != nil {
		return nil, err
	}

	attendee := &models.Attendee{
		EventID:   eventID,
		UserID:    viewer.UserID,
		UserName:  viewer.DisplayName,
		UserEmail: viewer.Email,
		UserPhoto: viewer.PhotoURL,
	}
	if err := s.attendees.Add(ctx, attendee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.feed.Publish(models.EventChange{Kind: models.EventAttendeesMoved, EventID: eventID})
	return s.status(ctx, eventID, true)
}

// Unattend removes the viewer's RSVP after explicit confirmation.
func (s *AttendanceService) Unattend(ctx context.Context, viewer models.Viewer, eventID string, confirmed bool) (*dto.AttendanceStatus, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to manage attendance")
	}
	if !confirmed {
		return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "confirm=true is required to remove an RSVP")
	}
	if _, err := s.visibleEvent(ctx, viewer, eventID); err != nil {
		return nil, err
	}
	if err := s.attendees.Remove(ctx, eventID, viewer.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove attendance")
	}
	s.feed.Publish(models.EventChange{Kind: models.EventAttendeesMoved, EventID: eventID})
	return s.status(ctx, eventID, false)
}

// Status reports the attendee count and whether the viewer attends.
func (s *AttendanceService) Status(ctx context.Context, viewer models.Viewer, eventID string) (*dto.AttendanceStatus, error) {
	if _, err := s.visibleEvent(ctx, viewer, eventID); err != nil {
		return nil, err
	}
	attending := false
	if viewer.Authenticated() {
		exists, err := s.attendees.Exists(ctx, eventID, viewer.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
		}
		attending = exists
	}
	return s.status(ctx, eventID, attending)
}

// ListMine returns the events the viewer attends.
func (s *AttendanceService) ListMine(ctx context.Context, viewer models.Viewer) ([]models.Event, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to view your events")
	}
	events, err := s.attending.ListAttending(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attending events")
	}
	return events, nil
}

func (s *AttendanceService) status(ctx context.Context, eventID string, attending bool) (*dto.AttendanceStatus, error) {
	count, err := s.attendees.Count(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendees")
	}
	return &dto.AttendanceStatus{EventID: eventID, Attending: attending, AttendeeCount: count}, nil
}

func (s *AttendanceService) visibleEvent(ctx context.Context, viewer models.Viewer, eventID string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !calendar.Visible(*event, viewer) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return event, nil
}
