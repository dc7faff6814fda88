package proxy

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolgate_requests_total",
			Help: "Total number of requests received",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toolgate_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Extraction metrics
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolgate_extractions_total",
			Help: "Total number of extraction passes",
		},
		[]string{"outcome"},
	)

	extractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toolgate_extraction_duration_seconds",
			Help:    "Extraction pass duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	toolCallsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "toolgate_tool_calls_extracted_total",
			Help: "Total number of tool calls extracted",
		},
	)

	skippedCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolgate_skipped_candidates_total",
			Help: "Total number of tool call candidates skipped during extraction",
		},
		[]string{"kind", "format"},
	)

	// Stream rewrite metrics
	streamRewrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolgate_stream_rewrites_total",
			Help: "Total number of SSE streams rewritten into structured tool calls",
		},
		[]string{"status"},
	)

	outputTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toolgate_output_tokens",
			Help:    "Output tokens of rewritten responses",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
		},
	)
)

// MetricsRecorder handles recording metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordRequest records a request with its metrics.
func (mr *MetricsRecorder) RecordRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	requestsTotal.WithLabelValues(method, path, statusStr).Inc()
	requestDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())
}

// RecordExtraction records one extraction pass.
func (mr *MetricsRecorder) RecordExtraction(calls int, duration time.Duration) {
	outcome := "empty"
	if calls > 0 {
		outcome = "found"
	}
	extractionsTotal.WithLabelValues(outcome).Inc()
	extractionDuration.Observe(duration.Seconds())
	toolCallsExtracted.Add(float64(calls))
}

// RecordSkippedCandidate records a candidate skipped during extraction.
func (mr *MetricsRecorder) RecordSkippedCandidate(kind, format string) {
	skippedCandidates.WithLabelValues(kind, format).Inc()
}

// RecordStreamRewrite records the outcome of an SSE stream rewrite.
func (mr *MetricsRecorder) RecordStreamRewrite(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	streamRewrites.WithLabelValues(status).Inc()
}

// RecordOutputTokens records the output token count of a rewritten response.
func (mr *MetricsRecorder) RecordOutputTokens(tokens int) {
	outputTokens.Observe(float64(tokens))
}
