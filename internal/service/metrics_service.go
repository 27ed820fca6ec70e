package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "palace"

// MetricsService owns the Prometheus registry and keeps running totals for the JSON summary.
// All methods are safe on a nil receiver so callers can run with metrics disabled.
type MetricsService struct {
	registry *prometheus.Registry

	httpLatency   *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	cacheLatency  *prometheus.HistogramVec
	cacheHitRatio prometheus.Gauge
	dbLatency     *prometheus.HistogramVec
	searches      *prometheus.CounterVec
	imports       *prometheus.CounterVec
	streams       prometheus.Gauge

	totals struct {
		requests     atomic.Uint64
		requestNanos atomic.Uint64
		hits         atomic.Uint64
		misses       atomic.Uint64
		queries      atomic.Uint64
		queryNanos   atomic.Uint64
		imported     atomic.Uint64
		duplicates   atomic.Uint64
		streams      atomic.Int64
	}
}

// NewMetricsService registers every collector on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &MetricsService{
		registry: registry,
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template.",
		}, []string{"method", "route", "status"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "search_cache_lookups_total",
			Help:      "Import search cache lookups by result.",
		}, []string{"result"}),
		cacheLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "search_cache_duration_seconds",
			Help:      "Import search cache latency by operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		cacheHitRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "search_cache_hit_ratio",
			Help:      "Share of import search cache lookups that hit.",
		}),
		dbLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Event store query latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "import_searches_total",
			Help:      "Import searches by source: live, cached or fallback.",
		}, []string{"outcome"}),
		imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "imports_total",
			Help:      "Import attempts by outcome: imported, duplicate or failed.",
		}, []string{"outcome"}),
		streams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "calendar_streams_open",
			Help:      "Open calendar snapshot streams.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one finished request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpLatency.WithLabelValues(method, route, code).Observe(d.Seconds())
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.totals.requests.Add(1)
	m.totals.requestNanos.Add(uint64(d))
}

// RecordCacheOperation records a search cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, d time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(d.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.totals.hits.Add(1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.totals.misses.Add(1)
	}
	m.cacheHitRatio.Set(ratio(m.totals.hits.Load(), m.totals.misses.Load()))
}

// ObserveCacheWrite records a search cache store.
func (m *MetricsService) ObserveCacheWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(d.Seconds())
}

// ObserveDBQuery records an event store query under label.
func (m *MetricsService) ObserveDBQuery(label string, d time.Duration) {
	if m == nil {
		return
	}
	m.dbLatency.WithLabelValues(label).Observe(d.Seconds())
	m.totals.queries.Add(1)
	m.totals.queryNanos.Add(uint64(d))
}

// RecordImportSearch counts a search by outcome (live, cached, fallback).
func (m *MetricsService) RecordImportSearch(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// RecordImport counts an import attempt by outcome (imported, duplicate, failed).
func (m *MetricsService) RecordImport(outcome string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(outcome).Inc()
	switch outcome {
	case "imported":
		m.totals.imported.Add(1)
	case "duplicate":
		m.totals.duplicates.Add(1)
	}
}

// StreamOpened marks a calendar stream as open.
func (m *MetricsService) StreamOpened() {
	if m == nil {
		return
	}
	m.streams.Inc()
	m.totals.streams.Add(1)
}

// StreamClosed marks a calendar stream as closed.
func (m *MetricsService) StreamClosed() {
	if m == nil {
		return
	}
	m.streams.Dec()
	m.totals.streams.Add(-1)
}

// MetricsSnapshot is the JSON summary served to staff.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"avg_db_query_duration_ms"`
	EventsImported           uint64    `json:"events_imported"`
	DuplicateImports         uint64    `json:"duplicate_imports"`
	ActiveStreams            int64     `json:"active_streams"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// Snapshot reads the running totals.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits, misses := m.totals.hits.Load(), m.totals.misses.Load()
	requests, queries := m.totals.requests.Load(), m.totals.queries.Load()
	return MetricsSnapshot{
		CacheHitRatio:            ratio(hits, misses),
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: averageMillis(m.totals.requestNanos.Load(), requests),
		DBQueryCount:             queries,
		AverageDBQueryDurationMs: averageMillis(m.totals.queryNanos.Load(), queries),
		EventsImported:           m.totals.imported.Load(),
		DuplicateImports:         m.totals.duplicates.Load(),
		ActiveStreams:            m.totals.streams.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func ratio(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func averageMillis(totalNanos, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(totalNanos) / float64(n) / float64(time.Millisecond)
}
