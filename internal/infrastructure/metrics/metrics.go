package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Engine metrics
	RowsProcessed     *prometheus.CounterVec
	RowsSkipped       *prometheus.CounterVec
	LedgerLines       *prometheus.CounterVec
	FiscalLines       *prometheus.CounterVec
	UnmatchedInvoices *prometheus.CounterVec

	// Batch metrics
	ModuleOutcomes *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	RunsReplayed   *prometheus.CounterVec
	ArtifactBytes  *prometheus.CounterVec

	// Retention metrics
	RetentionDeleted *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueries  *prometheus.CounterVec
	DBDuration *prometheus.HistogramVec
	DBRetries  *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Engine metrics
		RowsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_rows_processed_total",
				Help: "Transaction rows read by a rule module",
			},
			[]string{"enterprise", "rule"},
		),
		RowsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_rows_skipped_total",
				Help: "Transaction rows skipped by a rule module, by reason",
			},
			[]string{"enterprise", "rule", "reason"},
		),
		LedgerLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_ledger_lines_total",
				Help: "Ledger import lines emitted",
			},
			[]string{"enterprise", "rule"},
		),
		FiscalLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_fiscal_lines_total",
				Help: "Fiscal export lines emitted",
			},
			[]string{"enterprise", "rule"},
		),
		UnmatchedInvoices: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_unmatched_invoices_total",
				Help: "Transactions routed to the exception report",
			},
			[]string{"enterprise", "rule"},
		),

		// Batch metrics
		ModuleOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_module_outcomes_total",
				Help: "Rule module outcomes by status",
			},
			[]string{"enterprise", "rule", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerimport_run_duration_seconds",
				Help:    "Duration of a batch run",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"enterprise"},
		),
		RunsReplayed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_runs_replayed_total",
				Help: "Batches answered from a stored identical run",
			},
			[]string{"enterprise"},
		),
		ArtifactBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_artifact_bytes_total",
				Help: "Bytes written to the artifact store",
			},
			[]string{"kind"},
		),

		// Retention metrics
		RetentionDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_retention_deleted_total",
				Help: "Records removed by the retention job",
			},
			[]string{"resource"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerimport_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_db_queries_total",
				Help: "Total database queries",
			},
			[]string{"operation", "table"},
		),
		DBDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerimport_db_query_duration_seconds",
				Help:    "Database query duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		DBRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerimport_db_retries_total",
				Help: "Database operations retried after a transient error",
			},
			[]string{"operation"},
		),
	}
}
