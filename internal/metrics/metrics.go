package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Upstream NYT API calls by endpoint and outcome
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyt_upstream_requests_total",
			Help: "Total number of requests issued to the NYT API",
		},
		[]string{"endpoint", "outcome"},
	)

	StoriesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyt_stories_served_total",
			Help: "Total number of top stories returned to clients",
		},
		[]string{"category"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "application_info",
			Help: "Application information",
		},
		[]string{"service", "version", "environment"},
	)
)

// Upstream outcomes
const (
	OutcomeOK          = "ok"
	OutcomeCached      = "cached"
	OutcomeRateLimited = "rate_limited"
	OutcomeNotFound    = "not_found"
	OutcomeHTTPError   = "http_error"
	OutcomeTransport   = "transport_error"
)

// Init records static application info
func Init(serviceName, version, environment string) {
	ApplicationInfo.WithLabelValues(serviceName, version, environment).Set(1)
}
