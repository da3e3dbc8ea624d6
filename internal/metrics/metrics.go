// Package metrics holds the Prometheus collectors shared by the ingress service,
// the worker and the batch job.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "batch_etl"

var (
	// IngressEventsTotal counts handled object-created events by outcome.
	IngressEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_events_total",
			Help:      "Object-created events handled, by outcome.",
		},
		[]string{"status"},
	)

	// IngressParseFallbacksTotal counts payloads that looked like JSON but did not parse.
	IngressParseFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_parse_fallbacks_total",
			Help:      "Payloads written as an error envelope after a failed JSON parse.",
		},
	)

	// JobRunsTotal counts finished job runs.
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Batch job runs finished, by job and outcome.",
		},
		[]string{"job_name", "status"},
	)

	// JobRunsInFlight is the number of job runs currently executing.
	JobRunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_runs_in_flight",
			Help:      "Batch job runs currently executing.",
		},
	)

	RowsLoadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows read from input documents.",
		},
	)

	RowsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to partitioned output.",
		},
	)

	ColumnsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_dropped_total",
			Help:      "Columns dropped for exceeding the null ratio threshold.",
		},
	)

	DuplicatesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_rows_removed_total",
			Help:      "Exact duplicate rows removed during cleaning.",
		},
	)

	CatalogErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_errors_total",
			Help:      "Catalog registrations that failed and were skipped.",
		},
	)

	// StepDurationSeconds observes each pipeline step.
	StepDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_step_duration_seconds",
			Help:      "Duration of batch pipeline steps.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~163s
		},
		[]string{"step"},
	)
)
