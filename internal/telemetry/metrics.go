// Package telemetry provides observability primitives for the pantry gateway.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the gateway.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ActiveRequests    prometheus.Gauge
	UpstreamDuration  prometheus.Histogram
	UpstreamErrors    *prometheus.CounterVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	SearchOutcomes    *prometheus.CounterVec
	RecordQueueLength prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pantry",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "pantry",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pantry",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:                       "pantry",
			Name:                            "upstream_duration_seconds",
			Help:                            "Upstream recipe API call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pantry",
			Name:      "upstream_errors_total",
			Help:      "Total upstream recipe API errors.",
		}, []string{"source"}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pantry",
			Name:      "cache_hits_total",
			Help:      "Total recipe cache hits.",
		}),

		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pantry",
			Name:      "cache_misses_total",
			Help:      "Total recipe cache misses.",
		}),

		SearchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pantry",
			Name:      "search_outcomes_total",
			Help:      "Total search outcomes by kind.",
		}, []string{"kind"}),

		RecordQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pantry",
			Name:      "record_queue_length",
			Help:      "Current number of queued search records.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheHits,
		m.CacheMisses,
		m.SearchOutcomes,
		m.RecordQueueLength,
	)

	return m
}
