package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelOutcome = "outcome"
	LabelEntity  = "entity"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumshop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forumshop_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forumshop_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Business metrics
var (
	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumshop_purchases_total",
			Help: "Purchases by outcome",
		},
		[]string{LabelOutcome},
	)

	CreditsSpentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forumshop_credits_spent_total",
			Help: "Credits debited by committed purchases",
		},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumshop_inventory_reconciliations_total",
			Help: "Inventory reconciliations by outcome",
		},
		[]string{LabelOutcome},
	)

	UsersRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forumshop_users_registered_total",
			Help: "Users created on first reference",
		},
	)

	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumshop_mutations_total",
			Help: "Committed audited mutations by entity",
		},
		[]string{LabelEntity},
	)
)

// Outcome buckets an error into a metric label.
func Outcome(err error, rejected func(error) bool) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case rejected(err):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}
