package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_match_requests_total",
			Help: "Match creation attempts by outcome",
		},
		[]string{"outcome"},
	)

	MatchResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_match_responses_total",
			Help: "Match responses by decision and outcome",
		},
		[]string{"decision", "outcome"},
	)

	CompatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_compatibility_score",
			Help:    "Distribution of composite compatibility scores at match creation",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	AdmissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission decisions by action and result",
		},
		[]string{"action", "result"},
	)

	AdmissionStoreFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_store_failures_total",
			Help: "Counter store failures that were let through",
		},
		[]string{"action"},
	)

	AdmissionCountersPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_counters_purged_total",
			Help: "Expired admission counters removed by the sweep",
		},
	)

	MessagesPersistedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Messages written to the store",
		},
	)

	ChannelConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_channel_connections",
			Help: "Live channel connections in this process",
		},
	)

	ChannelGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_channel_groups",
			Help: "Match groups with at least one live connection in this process",
		},
	)

	ChannelDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_channel_deliveries_total",
			Help: "Fan-out deliveries to connections by result",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
