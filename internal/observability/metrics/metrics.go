package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "mpc_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	extractionTotal   *prometheus.CounterVec
	extractionLatency *prometheus.HistogramVec

	evaluationTotal *prometheus.CounterVec

	queryLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	watcherEvents *prometheus.CounterVec
)

// Init registers QA metrics and, when db is set, DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		extractionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "extraction_total",
				Help: "Total extractions by result and error code",
			},
			[]string{"result", "code"},
		)
		extractionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "extraction_latency_seconds",
				Help:    "Extraction latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		evaluationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluation_total",
				Help: "Evaluated check records by category and overall status",
			},
			[]string{"category", "status"},
		)

		queryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "query_latency_seconds",
				Help:    "Read model query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"query", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "calendar_export_total",
				Help: "Total calendar exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "calendar_export_latency_seconds",
				Help:    "Calendar export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		watcherEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "watcher_events_total",
				Help: "Folder watcher events by outcome",
			},
			[]string{"event"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			extractionTotal,
			extractionLatency,
			evaluationTotal,
			queryLatency,
			exportTotal,
			exportLatency,
			watcherEvents,
		)

		if db != nil {
			prometheus.MustRegister(newRecordCollector(db, logger))
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveExtraction records one extraction; code is empty on success.
func ObserveExtraction(result, code string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if code == "" {
		code = "none"
	}
	if extractionTotal != nil {
		extractionTotal.WithLabelValues(result, code).Inc()
	}
	if extractionLatency != nil {
		extractionLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncEvaluation counts an evaluated record.
func IncEvaluation(category, status string) {
	if category == "" {
		category = "unknown"
	}
	if evaluationTotal != nil {
		evaluationTotal.WithLabelValues(category, status).Inc()
	}
}

// ObserveQuery records read model latency.
func ObserveQuery(query, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if queryLatency != nil {
		queryLatency.WithLabelValues(query, result).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncWatcherEvent counts a watcher outcome (processed, skipped, not_ready, failed).
func IncWatcherEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if watcherEvents != nil {
		watcherEvents.WithLabelValues(event).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
