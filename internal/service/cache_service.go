package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/palace-events/events-api/internal/importer"
	appErrors "github.com/palace-events/events-api/pkg/errors"
)

const searchCachePattern = "import:search:*"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SearchCache keeps live import search results keyed by the normalised query.
// Placeholder results are never stored.
type SearchCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewSearchCache constructs the cache. A disabled cache misses on every lookup.
func NewSearchCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *SearchCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *SearchCache) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Lookup returns the stored result for the query. Backend failures count as a miss.
func (s *SearchCache) Lookup(ctx context.Context, q importer.Query) (*importer.Result, bool) {
	if !s.Enabled() {
		return nil, false
	}
	start := time.Now()
	var result importer.Result
	err := s.repo.Get(ctx, q.CacheKey(), &result)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("search cache lookup failed", zap.String("key", q.CacheKey()), zap.Error(err))
		}
		return nil, false
	}
	if !result.Live {
		return nil, false
	}
	return &result, true
}

// Store saves a live result for the configured TTL.
func (s *SearchCache) Store(ctx context.Context, q importer.Query, result importer.Result) {
	if !s.Enabled() || !result.Live {
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, q.CacheKey(), result, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("search cache store failed", zap.String("key", q.CacheKey()), zap.Error(err))
	}
}

// Flush drops every cached search.
func (s *SearchCache) Flush(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, searchCachePattern); err != nil {
		s.logger.Warn("search cache flush failed", zap.Error(err))
		return err
	}
	s.logger.Info("search cache flushed")
	return nil
}
