package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniquery_translations_total",
			Help: "Total number of translations returned, by winning source.",
		},
		[]string{"source"},
	)
	modelOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniquery_model_outcomes_total",
			Help: "Model generator outcomes (valid, invalid, unavailable).",
		},
		[]string{"outcome"},
	)
	validationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniquery_validation_failures_total",
			Help: "Rejected SQL candidates by source and first violation reason.",
		},
		[]string{"source", "reason"},
	)
	modelLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uniquery_model_latency_ms",
			Help:    "Model generator latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 20000},
		},
	)
	translationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniquery_translation_cache_total",
			Help: "Translation cache lookups by result (hit, miss, stale, error).",
		},
		[]string{"result"},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniquery_query_executions_total",
			Help: "Executed queries by status.",
		},
		[]string{"status"},
	)
	queryDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uniquery_query_duration_ms",
			Help:    "Query execution latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)
	schemaDriftElements = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "uniquery_schema_drift_elements",
			Help: "Registry tables and columns missing from the live database at the last check.",
		},
	)
	authFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "uniquery_auth_failures_total",
			Help: "Requests rejected because of an unknown API key.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		translationsTotal,
		modelOutcomesTotal,
		validationFailuresTotal,
		modelLatencyMs,
		translationCacheTotal,
		queryExecutionsTotal,
		queryDurationMs,
		schemaDriftElements,
		authFailuresTotal,
	)
}

func ObserveTranslation(source string) {
	translationsTotal.WithLabelValues(source).Inc()
}

func ObserveModelOutcome(outcome string, elapsed time.Duration) {
	modelOutcomesTotal.WithLabelValues(outcome).Inc()
	modelLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveValidationFailure(source, reason string) {
	validationFailuresTotal.WithLabelValues(source, reason).Inc()
}

func ObserveCacheLookup(result string) {
	translationCacheTotal.WithLabelValues(result).Inc()
}

func ObserveQueryExecution(status string, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(status).Inc()
	queryDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveSchemaDrift(missing int) {
	schemaDriftElements.Set(float64(missing))
}

func ObserveAuthFailure() {
	authFailuresTotal.Inc()
}
