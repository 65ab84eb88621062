package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_dedup_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_dedup_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_dedup_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_dedup_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_dedup_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_dedup_db_transaction_duration_seconds",
			Help:    "Batch transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"result"}, // "commit", "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_dedup_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scanner metrics
var (
	ScansStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_dedup_scans_started_total",
			Help: "Total number of scan sessions started or resumed",
		},
	)

	ScansCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_dedup_scans_completed_total",
			Help: "Total number of scan sessions reaching a terminal state",
		},
		[]string{"state"}, // "completed", "failed", "cancelled"
	)

	ScanFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_dedup_scan_files_processed_total",
			Help: "Total number of files processed across all scans",
		},
	)

	ScanFilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_dedup_scan_files_skipped_total",
			Help: "Total number of unchanged files skipped by change detection",
		},
	)

	ScanFilesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_dedup_scan_files_failed_total",
			Help: "Total number of files that failed extraction",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_dedup_scan_duration_seconds",
			Help:    "Duration of completed scan sessions in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	ScansRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_dedup_scans_running",
			Help: "Number of scan sessions currently running",
		},
	)
)

// Extraction metrics
var (
	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_dedup_extraction_duration_seconds",
			Help:    "Per-file fingerprint extraction duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ExtractionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_dedup_extraction_errors_total",
			Help: "Total number of fingerprint extraction failures",
		},
	)
)

// Clusterer metrics
var (
	ClusterRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_dedup_cluster_runs_total",
			Help: "Total number of duplicate clustering passes",
		},
	)

	ClusterGroupsFound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_dedup_cluster_groups_found",
			Help: "Number of duplicate groups emitted by the last clustering pass",
		},
	)

	ClusterDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_dedup_cluster_duration_seconds",
			Help:    "Duration of duplicate clustering passes in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	DuplicateActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_dedup_duplicate_actions_total",
			Help: "Total number of per-file duplicate actions applied",
		},
		[]string{"action", "status"}, // status: "ok", "error"
	)
)
