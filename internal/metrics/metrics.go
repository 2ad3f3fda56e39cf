// Package metrics holds the Prometheus collectors shared by the dispatch
// pipeline. Degraded paths (fail-open blacklist checks, swallowed projection
// and best-effort ledger failures) are counted here so they stay observable.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sms_dispatch"

var (
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Request messages processed by the orchestrator.",
		},
		[]string{"outcome", "code"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_processing_duration_seconds",
			Help:      "Time spent handling a single request message.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Duration of outbound provider calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	GatewayRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_retries_total",
			Help:      "Additional gateway attempts made by the retry wrapper.",
		},
	)

	BlacklistDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blacklist_degraded_total",
			Help:      "Blacklist operations that fell back because the cache or store failed.",
		},
		[]string{"source"},
	)

	ProjectionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_projection_failures_total",
			Help:      "Search projector writes that failed and were swallowed.",
		},
	)

	LedgerCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_cache_lookups_total",
			Help:      "Ledger cache lookups by result.",
		},
		[]string{"result"},
	)

	LedgerUpdateFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_update_failures_total",
			Help:      "Best-effort ledger status updates that failed.",
		},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Send requests accepted at ingress by result.",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-phone rate limiter.",
		},
	)
)
