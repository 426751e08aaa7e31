// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelType   = "type"
	LabelResult = "result"
	LabelKind   = "kind"
)

// HTTPLatencyBuckets spans fast JSON reads through multi-second uploads.
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_http_requests_total",
			Help: "Total number of HTTP requests by method, route pattern and status.",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videotube_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videotube_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)
)

// Domain Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_events_published_total",
			Help: "Domain events published by subject and result.",
		},
		[]string{LabelType, LabelResult},
	)

	StatsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_stats_cache_lookups_total",
			Help: "Dashboard statistics cache lookups by result (hit or miss).",
		},
		[]string{LabelResult},
	)

	MediaUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_media_uploads_total",
			Help: "Media uploads by kind and result.",
		},
		[]string{LabelKind, LabelResult},
	)
)
