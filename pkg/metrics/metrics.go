package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Graph metrics
	ResourcesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strata_resources_total",
			Help: "Total number of resource nodes by variant and status",
		},
		[]string{"variant", "status"},
	)

	RelationsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strata_relations_total",
			Help: "Total number of relation edges by variant",
		},
		[]string{"variant"},
	)

	PrincipalsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strata_principals_total",
			Help: "Total number of User and ServiceAccount nodes by kind",
		},
		[]string{"kind"},
	)

	TokensTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strata_tokens_total",
			Help: "Total number of live tokens",
		},
	)

	// Controller transaction metrics
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_controller_transactions_total",
			Help: "Total number of controller transactions by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	TransactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_controller_transaction_duration_seconds",
			Help:    "Time taken to execute a controller transaction in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	TransactionReplaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_controller_transaction_replays_total",
			Help: "Total number of transactions short-circuited by an already-seen tx-id",
		},
	)

	// Authorization metrics
	AuthzDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_authz_decisions_total",
			Help: "Total number of authorization decisions by context kind and result",
		},
		[]string{"kind", "result"},
	)

	// Rule engine metrics
	RuleEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_rule_evaluations_total",
			Help: "Total number of rule binding evaluations by result",
		},
		[]string{"result"},
	)

	RuleEvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strata_rule_evaluation_duration_seconds",
			Help:    "Time taken to evaluate every effective binding on one resource, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Notification broker metrics
	SubscribersConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strata_notify_subscribers_connected",
			Help: "Number of live (in-process) notification subscriptions",
		},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_notify_events_published_total",
			Help: "Total number of events published to the notification broker by kind",
		},
		[]string{"kind"},
	)

	ReplayedEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_notify_replayed_events_total",
			Help: "Total number of events redelivered to a reconnecting subscriber from its watermark",
		},
	)

	// Token signing/validation metrics
	TokenSignaturesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_token_signatures_total",
			Help: "Total number of tokens signed",
		},
	)

	TokenValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_token_validations_total",
			Help: "Total number of token validations by issuer type and result",
		},
		[]string{"issuer_type", "result"},
	)

	KeyRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_token_key_rotations_total",
			Help: "Total number of signing key rotations",
		},
	)

	// Storage metrics
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_store_operation_duration_seconds",
			Help:    "Time taken for a bbolt transaction to commit, by kind (view/update)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(ResourcesTotal)
	prometheus.MustRegister(RelationsTotal)
	prometheus.MustRegister(PrincipalsTotal)
	prometheus.MustRegister(TokensTotal)

	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionDuration)
	prometheus.MustRegister(TransactionReplaysTotal)

	prometheus.MustRegister(AuthzDecisionsTotal)

	prometheus.MustRegister(RuleEvaluationsTotal)
	prometheus.MustRegister(RuleEvaluationDuration)

	prometheus.MustRegister(SubscribersConnected)
	prometheus.MustRegister(EventsPublishedTotal)
	prometheus.MustRegister(ReplayedEventsTotal)

	prometheus.MustRegister(TokenSignaturesTotal)
	prometheus.MustRegister(TokenValidationsTotal)
	prometheus.MustRegister(KeyRotationsTotal)

	prometheus.MustRegister(StoreOperationDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
