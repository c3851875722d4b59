// Package metrics exposes Prometheus collectors for the harvest service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	probesTotal                *prometheus.CounterVec
	rateLimitHitsTotal         prometheus.Counter
	rateLimitDelaySeconds      prometheus.Histogram
	scanRunsTotal              *prometheus.CounterVec
	documentsProcessedTotal    *prometheus.CounterVec
	pipelineStageSeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeProbeWorkers         prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		probesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lawharvest_probes_total",
				Help: "Total number of existence probes, labeled by document type and outcome.",
			},
			[]string{"type", "outcome"},
		)

		rateLimitHitsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lawharvest_rate_limit_hits_total",
				Help: "Total number of 429 responses received from the source.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lawharvest_rate_limit_delay_seconds",
				Help:    "Histogram of inter-request delays applied by the rate controller.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		scanRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lawharvest_scan_runs_total",
				Help: "Total number of scan runs, labeled by strategy and result.",
			},
			[]string{"strategy", "result"},
		)

		documentsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lawharvest_documents_processed_total",
				Help: "Total number of pipeline runs, labeled by final stage.",
			},
			[]string{"stage"},
		)

		pipelineStageSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lawharvest_pipeline_stage_seconds",
				Help:    "Histogram of per-stage pipeline latencies.",
				Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 180},
			},
			[]string{"stage"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeProbeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lawharvest_active_probe_workers",
				Help: "Number of workers currently probing candidates.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProbe increments the probe counter for one candidate outcome.
func ObserveProbe(docType, outcome string) {
	probesTotal.WithLabelValues(docType, outcome).Inc()
}

// ObserveRateLimitHit counts one 429 from the source.
func ObserveRateLimitHit() {
	rateLimitHitsTotal.Inc()
}

// ObserveRateLimitDelay records an applied inter-request delay.
func ObserveRateLimitDelay(d time.Duration) {
	rateLimitDelaySeconds.Observe(d.Seconds())
}

// ObserveScanRun increments the scan run counter.
func ObserveScanRun(strategy, result string) {
	scanRunsTotal.WithLabelValues(strategy, result).Inc()
}

// ObserveDocumentProcessed counts a pipeline run ending at the given stage.
func ObserveDocumentProcessed(stage string) {
	documentsProcessedTotal.WithLabelValues(stage).Inc()
}

// ObservePipelineStage records the latency of one pipeline stage.
func ObservePipelineStage(stage string, duration time.Duration) {
	pipelineStageSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveProbeWorkers increments the active workers gauge.
func IncActiveProbeWorkers() {
	activeProbeWorkers.Inc()
}

// DecActiveProbeWorkers decrements the active workers gauge.
func DecActiveProbeWorkers() {
	activeProbeWorkers.Dec()
}
