// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FactsIngested counts facts handled by ingestion, by type and result
	// (written, updated, unchanged, duplicate).
	FactsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codefacts_facts_ingested_total",
		Help: "Facts processed by ingestion by type and result",
	}, []string{"type", "result"})

	// ValidationFailures counts records rejected by the validator.
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codefacts_validation_failures_total",
		Help: "Records rejected by schema validation by type",
	}, []string{"type"})

	// IndexRuns counts finished indexing runs by terminal status.
	IndexRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codefacts_index_runs_total",
		Help: "Indexing runs by terminal status",
	}, []string{"status"})

	// CleanupDeleted counts stale facts removed by cleanup.
	CleanupDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codefacts_cleanup_deleted_total",
		Help: "Stale facts deleted by cleanup by type",
	}, []string{"type"})

	// CleanupDeleteFailures counts best-effort deletions that failed.
	CleanupDeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codefacts_cleanup_delete_failures_total",
		Help: "Stale fact deletions that failed",
	})

	// TraversalDuration tracks caller/callee traversal latency.
	TraversalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codefacts_traversal_duration_seconds",
		Help:    "Call graph traversal duration in seconds, including the store scan",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
	}, []string{"direction"})

	// StoreScanDocuments tracks how many documents each full scan reads.
	StoreScanDocuments = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codefacts_store_scan_documents",
		Help:    "Documents read per full store scan",
		Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
	})
)

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
