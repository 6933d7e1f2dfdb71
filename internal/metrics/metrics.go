// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed refresh metrics
	FeedRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_feed_refreshes_total",
			Help: "Total number of feed refresh attempts by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	FeedRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quake_feed_refresh_duration_seconds",
			Help:    "Duration of upstream feed fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FeedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quake_feed_events",
			Help: "Number of events in the cached feed snapshot",
		},
	)

	FeedLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quake_feed_last_success_timestamp_seconds",
			Help: "Unix time of the last successful feed refresh",
		},
	)

	// Geocoding metrics
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_geocode_lookups_total",
			Help: "Total number of postal code lookups by backend and outcome",
		},
		[]string{"backend", "outcome"}, // "found", "not_found", "error"
	)

	// Outbound HTTP metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_upstream_requests_total",
			Help: "Total number of outbound requests by upstream and result",
		},
		[]string{"upstream", "result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)
