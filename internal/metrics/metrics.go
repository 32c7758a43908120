package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmwise",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "farmwise",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	// Upstream generation calls by operation (chat, scan) and outcome
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmwise",
			Subsystem: "gemini",
			Name:      "calls_total",
			Help:      "Total calls to the generation API",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "farmwise",
			Subsystem: "gemini",
			Name:      "call_duration_seconds",
			Help:      "Generation API call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// How scan replies were normalized: parsed, fallback
	NormalizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmwise",
			Subsystem: "scan",
			Name:      "normalizations_total",
			Help:      "Scan replies by normalization path",
		},
		[]string{"path"},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "farmwise",
			Subsystem: "scan",
			Name:      "upload_bytes",
			Help:      "Size of uploaded scan images",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 7),
		},
	)
)
