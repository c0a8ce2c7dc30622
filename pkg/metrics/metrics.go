package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DiagnosticMissingContext   = "missing_context"
	DiagnosticUnparseableDate  = "unparseable_date"
	DiagnosticLegacyDecode     = "legacy_decode_failure"
	DiagnosticRuleDecode       = "rule_decode_failure"
	DiagnosticEmptyCatalog     = "empty_catalog"
	DiagnosticLoadFailed       = "load_failed"
	DiagnosticFormLookupFailed = "form_lookup_failed"
)

var (
	CriteriaCompilationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewfilter_compilations_total",
			Help: "Total number of criteria compilations by outcome (count)",
		},
		[]string{"result"},
	)

	CriteriaCompileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viewfilter_compile_duration_ms",
			Help:    "Duration of load plus compile for one view render in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"result"},
	)

	RulesEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewfilter_rules_emitted_total",
			Help: "Total number of resolved rules appended to criteria (count)",
		},
		[]string{"mode"},
	)

	RulesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "viewfilter_rules_dropped_total",
			Help: "Total number of rules dropped for an empty value (count)",
		},
	)

	DiagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewfilter_diagnostics_total",
			Help: "Total number of non-fatal diagnostics by kind (count)",
		},
		[]string{"kind"},
	)

	RuleSetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewfilter_rule_set_loads_total",
			Help: "Total number of rule set loads by stored format (count)",
		},
		[]string{"format"},
	)

	RuleSetSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewfilter_rule_set_saves_total",
			Help: "Total number of rule set saves (count)",
		},
		[]string{"status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "operation"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

var registerOnce sync.Once

// Register is safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CriteriaCompilationsTotal,
			CriteriaCompileDuration,
			RulesEmittedTotal,
			RulesDroppedTotal,
			DiagnosticsTotal,
			RuleSetLoadsTotal,
			RuleSetSavesTotal,
			RetryAttemptsTotal,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
			RateLimitRequestsTotal,
			KafkaMessagesWrittenTotal,
			KafkaWriteDuration,
			DatabaseQueriesTotal,
			DatabaseQueryDuration,
		)
	})
}

func IncCompilation(result string) {
	CriteriaCompilationsTotal.WithLabelValues(result).Inc()
}

func ObserveCompileDuration(result string, duration time.Duration) {
	CriteriaCompileDuration.WithLabelValues(result).Observe(float64(duration.Milliseconds()))
}

func AddRulesEmitted(mode string, n int) {
	RulesEmittedTotal.WithLabelValues(mode).Add(float64(n))
}

func AddRulesDropped(n int) {
	RulesDroppedTotal.Add(float64(n))
}

func IncDiagnostic(kind string) {
	DiagnosticsTotal.WithLabelValues(kind).Inc()
}

func IncRuleSetLoad(format string) {
	RuleSetLoadsTotal.WithLabelValues(format).Inc()
}

func IncRuleSetSave(status string) {
	RuleSetSavesTotal.WithLabelValues(status).Inc()
}

func IncRetryAttempt(service, operation string) {
	RetryAttemptsTotal.WithLabelValues(service, operation).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}
