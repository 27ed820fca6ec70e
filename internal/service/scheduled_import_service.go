package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/importer"
	"github.com/palace-events/events-api/pkg/jobs"
)

const savedSearchJobType = "saved_search"

type savedSearchRunner interface {
	ImportAll(ctx context.Context, ownerID string, q importer.Query) (*dto.ScheduledImportReport, error)
}

// ScheduleSettings configures the periodic import.
type ScheduleSettings struct {
	Cron     string
	Searches []string
	OwnerID  string
	Workers  int
	Retries  int
}

// ParseSavedSearch reads "keyword@location"; the location part is optional.
func ParseSavedSearch(raw string) (importer.Query, error) {
	keyword, location, _ := strings.Cut(strings.TrimSpace(raw), "@")
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return importer.Query{}, fmt.Errorf("saved search %q has no keyword", raw)
	}
	return importer.Query{Keyword: keyword, Location: strings.TrimSpace(location)}, nil
}

// ScheduledImporter re-runs saved searches on a cron schedule. Each tick enqueues one job per
// search; pool workers import the live results.
type ScheduledImporter struct {
	runner   savedSearchRunner
	settings ScheduleSettings
	searches []importer.Query
	cron     *cron.Cron
	pool     *jobs.Pool
	logger   *zap.Logger

	mu      sync.RWMutex
	reports map[string]dto.ScheduledImportReport
}

// NewScheduledImporter validates the schedule and saved searches.
func NewScheduledImporter(runner savedSearchRunner, settings ScheduleSettings, logger *zap.Logger) (*ScheduledImporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.OwnerID == "" {
		return nil, fmt.Errorf("scheduled import needs an owner user id")
	}
	if _, err := cron.ParseStandard(settings.Cron); err != nil {
		return nil, fmt.Errorf("invalid import schedule %q: %w", settings.Cron, err)
	}
	searches := make([]importer.Query, 0, len(settings.Searches))
	for _, raw := range settings.Searches {
		q, err := ParseSavedSearch(raw)
		if err != nil {
			return nil, err
		}
		searches = append(searches, q)
	}

	s := &ScheduledImporter{
		runner:   runner,
		settings: settings,
		searches: searches,
		cron:     cron.New(),
		logger:   logger.With(zap.String("component", "scheduled_import")),
		reports:  make(map[string]dto.ScheduledImportReport),
	}
	s.pool = jobs.NewPool("scheduled-import", s.handle, jobs.Options{
		Workers: settings.Workers,
		Retries: settings.Retries,
		Logger:  logger,
	})
	return s, nil
}

// Start launches the workers and the cron schedule.
func (s *ScheduledImporter) Start(ctx context.Context) error {
	s.pool.Start(ctx)
	if _, err := s.cron.AddFunc(s.settings.Cron, s.EnqueueAll); err != nil {
		s.pool.Stop()
		return fmt.Errorf("schedule import: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduled import started", zap.String("cron", s.settings.Cron), zap.Int("searches", len(s.searches)))
	return nil
}

// Stop waits for a running tick to finish, then drains the workers.
func (s *ScheduledImporter) Stop() {
	<-s.cron.Stop().Done()
	s.pool.Stop()
}

// EnqueueAll queues one job per saved search.
func (s *ScheduledImporter) EnqueueAll() {
	for _, q := range s.searches {
		if err := s.pool.Submit(jobs.Job{Kind: savedSearchJobType, Payload: q}); err != nil {
			s.logger.Warn("failed to enqueue saved search", zap.String("search", savedSearchLabel(q)), zap.Error(err))
		}
	}
}

func (s *ScheduledImporter) handle(ctx context.Context, job jobs.Job) error {
	q, ok := job.Payload.(importer.Query)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	report, err := s.runner.ImportAll(ctx, s.settings.OwnerID, q)
	if report != nil {
		s.mu.Lock()
		s.reports[report.Search] = *report
		s.mu.Unlock()
	}
	if err != nil {
		return err
	}
	s.logger.Info("saved search imported",
		zap.String("search", report.Search),
		zap.Int("found", report.Found),
		zap.Int("imported", report.Imported),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed", report.Failed),
	)
	return nil
}

// Reports returns the latest run of each saved search, ordered by search.
func (s *ScheduledImporter) Reports() []dto.ScheduledImportReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dto.ScheduledImportReport, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Search < out[j].Search })
	return out
}
