package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Webhook metrics
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_webhook_events_total",
			Help: "Webhook events received, by event type",
		},
		[]string{"type"}, // known type or "unknown"
	)

	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_dispatch_failures_total",
			Help: "Webhook events dropped at the dispatch boundary",
		},
		[]string{"reason"}, // "decode", "malformed", "handler", "panic"
	)

	// History metrics
	HistoryAppends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_history_appends_total",
			Help: "Group messages stored in history",
		},
	)

	HistoryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_history_evictions_total",
			Help: "Group messages evicted from full histories",
		},
	)

	HistoryReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_history_replays_total",
			Help: "History commands served",
		},
	)

	// Relay metrics
	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_relay_messages_total",
			Help: "Outbound messages handed to Respoke",
		},
		[]string{"target", "result"}, // target "endpoint"/"group"; result "sent"/"failed"/"dropped"
	)

	// Infrastructure metrics
	RespokeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_respoke_latency_seconds",
			Help:    "Respoke REST call latency",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	SocketConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatbot_respoke_socket_connected",
			Help: "1 while the application socket is connected",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_blocked_requests_total",
			Help: "Requests rejected by request validation",
		},
		[]string{"reason"},
	)
)
