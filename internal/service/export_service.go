package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
	"github.com/palace-events/events-api/pkg/export"
)

// ExportFormat selects the roster renderer.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type rosterReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Attendee, error)
}

type renderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders attendee rosters for event owners.
type ExportService struct {
	events    eventReader
	attendees rosterReader
	renderers map[ExportFormat]renderer
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(events eventReader, attendees rosterReader, location *time.Location, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}
	return &ExportService{
		events:    events,
		attendees: attendees,
		renderers: map[ExportFormat]renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Roster renders the attendee list of an event owned by the viewer.
func (s *ExportService) Roster(ctx context.Context, viewer models.Viewer, eventID string, format ExportFormat) (*ExportFile, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to export attendees")
	}
	if format == "" {
		format = ExportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.UserID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the event owner can export attendees")
	}

	attendees, err := s.attendees.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendees")
	}

	payload, err := r.Render(s.rosterDataset(*event, attendees))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("attendee roster exported", zap.String("event_id", eventID), zap.String("format", string(format)), zap.Int("rows", len(attendees)))
	return &ExportFile{
		Filename:    s.buildFilename(*event, r.Extension()),
		ContentType: r.ContentType(),
		Data:        payload,
	}, nil
}

func (s *ExportService) rosterDataset(event models.Event, attendees []models.Attendee) export.Dataset {
	title := event.Title
	if event.HasValidStart() {
		title = fmt.Sprintf("%s (%s)", event.Title, event.Start.In(s.location).Format("2 Jan 2006 15:04"))
	}
	rows := make([][]string, 0, len(attendees))
	for i, a := range attendees {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			a.UserName,
			a.UserEmail,
			a.JoinedAt.In(s.location).Format("2006-01-02 15:04"),
		})
	}
	return export.Dataset{
		Title:   title,
		Headers: []string{"#", "Name", "Email", "Joined"},
		Rows:    rows,
	}
}

func (s *ExportService) buildFilename(event models.Event, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("attendees_%s_%s.%s", sanitizeFilename(event.Title), timestamp, ext)
}

func sanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(strings.ToLower(strings.TrimSpace(raw)))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
