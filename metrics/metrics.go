package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelAction = "action"
)

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usersvc_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "usersvc_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "usersvc_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)
)

// Business Metrics
var (
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usersvc_users_registered_total",
			Help: "Accounts created",
		},
	)

	Subscriptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usersvc_subscriptions_total",
			Help: "Successful subscription transitions",
		},
		[]string{LabelAction},
	)

	FollowerCountAnomalies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usersvc_follower_count_anomalies_total",
			Help: "Follower counters observed below zero",
		},
	)
)
