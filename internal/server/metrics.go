package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "platewatch"

// Request counts come from the histogram's _count series.
var httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: metricsNamespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "Latency of HTTP requests by route and status.",
	Buckets:   []float64{.005, .025, .1, .5, 1, 5, 30, 120, 600},
}, []string{"method", "route", "status"})

// Video aggregation.
var (
	videoRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "video",
		Name:      "requests_total",
		Help:      "Videos submitted for detection by transport and outcome.",
	}, []string{"source", "status"})

	videoProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "video",
		Name:      "processing_duration_seconds",
		Help:      "Wall time from first decoded frame to final reading set.",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"source"})

	framesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "frames_processed_total",
		Help:      "Frames run through detection.",
	})

	recognitionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "recognition_failures_total",
		Help:      "Plate crops skipped because recognition failed.",
	})

	plateReadingsPerVideo = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "plate_readings_per_video",
		Help:      "Distinct plate readings reported per video.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	uploadSizeBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "upload_size_bytes",
		Help:      "Size of accepted video uploads.",
		Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 9),
	})
)

// Admission control and streaming.
var (
	rateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rate_limit_hits_total",
		Help:      "Requests refused by the limiter, by window or quota kind.",
	}, []string{"type"})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "websocket",
		Name:      "active_connections",
		Help:      "Open /ws/detect connections.",
	})

	websocketMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "websocket",
		Name:      "messages_total",
		Help:      "WebSocket text messages by direction.",
	}, []string{"direction"})
)
