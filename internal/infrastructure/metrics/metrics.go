// Package metrics provides Prometheus metrics for starbot.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// Metrics holds all Prometheus metrics for starbot. It implements
// ports.Telemetry.
type Metrics struct {
	registry *prometheus.Registry

	// Chat pipeline metrics
	ChatRequestsTotal   *prometheus.CounterVec
	ChatRequestDuration *prometheus.HistogramVec
	RetrievalResults    prometheus.Histogram
	RetrievalRetries    prometheus.Counter
	GenerationDuration  prometheus.Histogram
	GenerationFailures  *prometheus.CounterVec

	// Knowledge base metrics
	ChunksLoaded      prometheus.Gauge
	SnapshotRefreshes prometheus.Counter
	FeedbackTotal     *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ServerStartTime time.Time
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{registry: reg, ServerStartTime: time.Now()}

	m.ChatRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starbot_chat_requests_total",
			Help: "Total number of chat requests by outcome",
		},
		[]string{"outcome", "cached"},
	)

	m.ChatRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starbot_chat_request_duration_seconds",
			Help:    "End-to-end duration of chat requests in seconds",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	m.RetrievalResults = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "starbot_retrieval_results",
			Help:    "Number of chunks returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 10},
		},
	)

	m.RetrievalRetries = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "starbot_retrieval_retries_total",
			Help: "Retrievals that fell through to the lower threshold",
		},
	)

	m.GenerationDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "starbot_generation_duration_seconds",
			Help:    "Duration of language-model calls in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	m.GenerationFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starbot_generation_failures_total",
			Help: "Failed language-model calls by failure kind",
		},
		[]string{"kind"},
	)

	m.ChunksLoaded = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "starbot_chunks_loaded",
			Help: "Chunks in the current knowledge-base snapshot",
		},
	)

	m.SnapshotRefreshes = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "starbot_snapshot_refreshes_total",
			Help: "Knowledge-base snapshot rebuilds, including ingestion runs",
		},
	)

	m.FeedbackTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starbot_feedback_total",
			Help: "Feedback submissions by verdict",
		},
		[]string{"verdict"},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starbot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starbot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "starbot_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveChat implements ports.Telemetry.
func (m *Metrics) ObserveChat(outcome entities.Outcome, cached bool, elapsed time.Duration) {
	m.ChatRequestsTotal.WithLabelValues(string(outcome), strconv.FormatBool(cached)).Inc()
	m.ChatRequestDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// ObserveRetrieval implements ports.Telemetry.
func (m *Metrics) ObserveRetrieval(results int, retried bool) {
	m.RetrievalResults.Observe(float64(results))
	if retried {
		m.RetrievalRetries.Inc()
	}
}

// ObserveGeneration implements ports.Telemetry.
func (m *Metrics) ObserveGeneration(elapsed time.Duration, failure entities.FailureKind) {
	m.GenerationDuration.Observe(elapsed.Seconds())
	if failure != "" {
		m.GenerationFailures.WithLabelValues(string(failure)).Inc()
	}
}

// RecordFeedback counts one feedback submission.
func (m *Metrics) RecordFeedback(v entities.Verdict) {
	m.FeedbackTotal.WithLabelValues(string(v)).Inc()
}

// SetChunksLoaded records the snapshot size.
func (m *Metrics) SetChunksLoaded(n int) {
	m.ChunksLoaded.Set(float64(n))
}

// RecordRefresh counts one snapshot swap and records its size.
func (m *Metrics) RecordRefresh(chunks int) {
	m.SnapshotRefreshes.Inc()
	m.SetChunksLoaded(chunks)
}

// RegisterCache exposes cache counters read from stats at scrape time.
func (m *Metrics) RegisterCache(stats func() (hits, misses uint64, entries int)) {
	factory := promauto.With(m.registry)
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "starbot_cache_hits_total",
		Help: "Response cache hits",
	}, func() float64 {
		h, _, _ := stats()
		return float64(h)
	})
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "starbot_cache_misses_total",
		Help: "Response cache misses",
	}, func() float64 {
		_, mi, _ := stats()
		return float64(mi)
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "starbot_cache_entries",
		Help: "Entries currently held by the response cache",
	}, func() float64 {
		_, _, e := stats()
		return float64(e)
	})
}

// RecordHTTPRequest records one finished HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
