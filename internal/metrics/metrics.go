// Package metrics provides Prometheus metrics for alertrouter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "alertrouter"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts API requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// Routing metrics
var (
	// RoutingDecisions counts routing outcomes by severity and assignment reason.
	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Total routing decisions by severity and reason",
		},
		[]string{"severity", "reason"},
	)

	// RoutingFallbacks counts rule routing errors that degraded to default routing.
	RoutingFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "fallbacks_total",
			Help:      "Rule routing failures that fell back to default routing",
		},
	)
)

// Delivery metrics
var (
	// DeliveryAttempts counts notification attempts by channel type and status.
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Total notification delivery attempts",
		},
		[]string{"channel_type", "status"},
	)

	// DeliveryDuration tracks transport latency.
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "duration_seconds",
			Help:      "Notification delivery latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel_type"},
	)

	// ChannelTests counts channel test deliveries by channel type and result.
	ChannelTests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "channel_tests_total",
			Help:      "Total channel test deliveries",
		},
		[]string{"channel_type", "result"},
	)
)

// Evaluation metrics
var (
	// RuleEvaluations counts alert rule evaluations by result.
	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "rules_total",
			Help:      "Total alert rule evaluations by result",
		},
		[]string{"result"},
	)

	// EvaluationDuration tracks batch evaluation time.
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "batch_duration_seconds",
			Help:      "Time spent evaluating all alert rules",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
