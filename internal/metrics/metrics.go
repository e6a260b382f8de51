// Package metrics defines the Prometheus instrumentation for the IPTV
// viewer: HTTP traffic, playlist parsing, snapshot cache behavior, load
// orchestration, and windowed view reads.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptv_viewer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iptv_viewer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iptv_viewer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Parser metrics
var (
	ParseRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_parse_runs_total",
			Help: "Total number of playlist parse runs",
		},
	)

	ParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iptv_viewer_parse_duration_seconds",
			Help:    "Playlist parse duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ParseRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_parse_records_total",
			Help: "Total number of channel records produced by parsing",
		},
	)

	ParseDiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptv_viewer_parse_diagnostics_total",
			Help: "Total number of skipped or malformed playlist entries",
		},
		[]string{"reason"},
	)
)

// Cache metrics
var (
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_cache_hits_total",
			Help: "Total number of snapshot cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_cache_misses_total",
			Help: "Total number of snapshot cache misses, including corrupt or incompatible entries",
		},
	)

	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_cache_evictions_total",
			Help: "Total number of snapshots evicted from the cache",
		},
	)

	CacheWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_cache_write_failures_total",
			Help: "Total number of failed snapshot cache writes",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iptv_viewer_cache_operation_duration_seconds",
			Help:    "Snapshot cache operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)
)

// Loader metrics
var (
	LoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptv_viewer_loads_total",
			Help: "Total number of playlist load requests by outcome",
		},
		[]string{"outcome"},
	)

	LoadsDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_loads_discarded_total",
			Help: "Total number of completed builds discarded because a newer load superseded them",
		},
	)

	LoadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iptv_viewer_loads_in_flight",
			Help: "Number of playlist builds currently in flight",
		},
	)
)

// Favorites metrics
var (
	FavoritesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iptv_viewer_favorites_total",
			Help: "Number of channels currently favorited",
		},
	)
)

// View metrics
var (
	SnapshotSwapsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_snapshot_swaps_total",
			Help: "Total number of current-snapshot swaps",
		},
	)

	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iptv_viewer_snapshot_records",
			Help: "Number of records in the current snapshot",
		},
	)

	ViewConfiguresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iptv_viewer_view_configures_total",
			Help: "Total number of windowed view reconfigurations",
		},
	)

	ViewSliceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iptv_viewer_view_slice_duration_seconds",
			Help:    "Windowed slice duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
	)
)
