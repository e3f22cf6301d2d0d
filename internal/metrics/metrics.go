// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expenses_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "expenses_http_request_duration_seconds",
		Help:    "HTTP request latency by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expenses_cache_lookups_total",
		Help: "Visible-set cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expenses_transactions_mutations_total",
		Help: "Successful transaction mutations by operation.",
	}, []string{"op"})

	Throttled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expenses_throttled_requests_total",
		Help: "Requests rejected by the rate limiter, by scope.",
	}, []string{"scope"})
)
