package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// RecordsExtracted tracks records pulled from the upstream source
	RecordsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftoff_records_extracted_total",
			Help: "Total number of records extracted from the source",
		},
		[]string{"entity"},
	)

	// RecordsLoaded tracks rows upserted into the curated layer
	RecordsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftoff_records_loaded_total",
			Help: "Total number of rows upserted into the curated layer",
		},
		[]string{"entity"},
	)

	// RecordsDropped tracks source records dropped by validation
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftoff_records_dropped_total",
			Help: "Total number of source records dropped by validation",
		},
		[]string{"entity", "reason"},
	)

	// RunsTotal tracks pipeline runs by terminal state
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftoff_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"entity", "status"}, // status: success, empty, failed
	)

	// RunDuration measures pipeline run duration in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liftoff_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
		},
		[]string{"entity", "status"},
	)

	// WatermarkTimestamp tracks the last observed watermark per entity
	WatermarkTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "liftoff_watermark_timestamp",
			Help: "Last observed watermark (unix timestamp)",
		},
		[]string{"entity"},
	)

	// HTTPAttempts counts upstream HTTP attempts by status class
	HTTPAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftoff_http_attempts_total",
			Help: "Total number of upstream HTTP attempts",
		},
		[]string{"status_class"}, // 2xx, 4xx, 5xx, error
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftoff_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// WarehouseQueries counts warehouse statements executed
	WarehouseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liftoff_warehouse_queries_total",
			Help: "Total number of warehouse statements executed",
		},
		[]string{"operation", "status"}, // operation: raw_append, upsert, watermark, schema
	)
)

// RecordExtracted records records pulled from the source for an entity
func RecordExtracted(entity string, n int) {
	RecordsExtracted.WithLabelValues(entity).Add(float64(n))
}

// RecordLoaded records rows upserted for an entity
func RecordLoaded(entity string, n int) {
	RecordsLoaded.WithLabelValues(entity).Add(float64(n))
}

// RecordDropped records a dropped source record
func RecordDropped(entity, reason string) {
	RecordsDropped.WithLabelValues(entity, reason).Inc()
}

// RecordRun records a completed pipeline run
func RecordRun(entity, status string, duration float64) {
	RunsTotal.WithLabelValues(entity, status).Inc()
	RunDuration.WithLabelValues(entity, status).Observe(duration)
}

// RecordWatermark records the watermark observed for an entity
func RecordWatermark(entity string, unixSeconds float64) {
	WatermarkTimestamp.WithLabelValues(entity).Set(unixSeconds)
}

// RecordHTTPAttempt records one upstream HTTP attempt
func RecordHTTPAttempt(statusClass string) {
	HTTPAttempts.WithLabelValues(statusClass).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordWarehouseQuery records a warehouse statement execution
func RecordWarehouseQuery(operation, status string) {
	WarehouseQueries.WithLabelValues(operation, status).Inc()
}
