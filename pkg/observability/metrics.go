package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "covera"

// EventsConsumed counts settled deliveries per transport and outcome
// (acked, rejected, ignored, malformed, terminated).
var EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "eventbus",
	Name:      "events_consumed_total",
	Help:      "Count of consumed events by source and outcome",
}, []string{"source", "outcome"})

var EventDispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "eventbus",
	Name:      "dispatch_duration_seconds",
	Help:      "Duration of event handler dispatch",
	Buckets:   prometheus.DefBuckets,
}, []string{"routing_key"})

var OutboxMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "outbox",
	Name:      "messages_total",
	Help:      "Count of processed outbox messages by outcome",
}, []string{"outcome"})

// OutboxLag is the age in seconds of the oldest message of the last batch.
var OutboxLag = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "outbox",
	Name:      "lag_seconds",
	Help:      "Age of the oldest unpublished outbox message in the last batch",
})

var GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "gateway",
	Name:      "requests_total",
	Help:      "Count of payment gateway calls by operation and outcome",
}, []string{"operation", "outcome"})

var GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "gateway",
	Name:      "request_duration_seconds",
	Help:      "Duration of payment gateway calls including retries",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"operation"})

var DiscountRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "discount_job",
	Name:      "runs_total",
	Help:      "Count of discount job runs by status",
}, []string{"status"})

var DiscountsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "discount_job",
	Name:      "contracts_total",
	Help:      "Count of contracts visited by the discount job by outcome",
}, []string{"outcome"})

var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notifications",
	Name:      "sent_total",
	Help:      "Count of notifications by audience and outcome",
}, []string{"audience", "outcome"})
