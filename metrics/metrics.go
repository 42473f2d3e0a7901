package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Reconciliations counts whole-document writes by outcome
	Reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_reconciliations_total",
			Help: "Total number of whole-document reconciliation transactions",
		},
		[]string{"result"},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "document_reconciliation_duration_seconds",
			Help:    "Duration of whole-document reconciliation transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	// QuoteCodesReassigned counts quotes that received a fresh number during reconciliation
	QuoteCodesReassigned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_codes_reassigned_total",
			Help: "Quotes whose document number was missing, malformed or colliding",
		},
	)

	SequenceAllocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sequence_allocations_total",
			Help: "Document numbers allocated per scope",
		},
		[]string{"scope"},
	)

	SnapshotCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_snapshot_cache_lookups_total",
			Help: "Snapshot cache lookups on the document read path",
		},
		[]string{"result"},
	)

	registerOnce sync.Once
)

// Register adds every collector to the default prometheus registry. Safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDurationHistogram,
			Reconciliations,
			ReconciliationDuration,
			QuoteCodesReassigned,
			SequenceAllocations,
			SnapshotCacheLookups,
		)
	})
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
