package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rendezvous_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Signaling metrics
	PeersJoined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rendezvous_peers_joined_total",
			Help: "Total peers joined",
		},
	)

	InitiatorsElected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rendezvous_initiators_elected_total",
			Help: "Total peers elected initiator on join",
		},
	)

	BacklogReplayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rendezvous_backlog_replayed_total",
			Help: "Total messages copied into late joiners' inboxes",
		},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_messages_sent_total",
			Help: "Total messages sent",
		},
		[]string{"type"}, // "offer", "answer", "candidate", "other", "bye", "custom"
	)

	MessagesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rendezvous_messages_delivered_total",
			Help: "Total messages handed out by receive",
		},
	)

	DuplicateWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_duplicate_writes_total",
			Help: "Writes dropped because the key already existed",
		},
		[]string{"scope"}, // "archive", "inbox", "peer", "read"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rendezvous_store_latency_seconds",
			Help:    "Entity store operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		},
		[]string{"backend", "op"},
	)
)
