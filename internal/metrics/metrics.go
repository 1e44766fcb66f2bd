// Package metrics holds the Prometheus collectors for bookgraph. Collectors
// live on a private registry so several servers can coexist in one process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	CacheHits           *prometheus.CounterVec
	CacheMisses         *prometheus.CounterVec
	ChunksAnalyzed      prometheus.Counter
	ChunkParseFailures  prometheus.Counter
	InteractionsDropped prometheus.Counter
	LLMDuration         *prometheus.HistogramVec
	LLMErrors           *prometheus.CounterVec
	FetchFailures       *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookgraph_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookgraph_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"route"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookgraph_cache_hits_total",
				Help: "Response cache hits",
			},
			[]string{"endpoint"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookgraph_cache_misses_total",
				Help: "Response cache misses",
			},
			[]string{"endpoint"},
		),
		ChunksAnalyzed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookgraph_chunks_analyzed_total",
				Help: "Chunks sent to the language model",
			},
		),
		ChunkParseFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookgraph_chunk_parse_failures_total",
				Help: "Chunks whose model output could not be parsed and contributed nothing",
			},
		),
		InteractionsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookgraph_interactions_dropped_total",
				Help: "Interactions rejected by validation",
			},
		),
		LLMDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookgraph_llm_call_duration_seconds",
				Help:    "Language model call duration in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"provider"},
		),
		LLMErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookgraph_llm_errors_total",
				Help: "Failed language model calls",
			},
			[]string{"provider"},
		),
		FetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookgraph_fetch_failures_total",
				Help: "Upstream book fetch failures",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.CacheHits,
		m.CacheMisses,
		m.ChunksAnalyzed,
		m.ChunkParseFailures,
		m.InteractionsDropped,
		m.LLMDuration,
		m.LLMErrors,
		m.FetchFailures,
	)

	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) CacheHit(endpoint string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) CacheMiss(endpoint string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) ChunkAnalyzed() {
	if m == nil {
		return
	}
	m.ChunksAnalyzed.Inc()
}

func (m *Metrics) ChunkParseFailed() {
	if m == nil {
		return
	}
	m.ChunkParseFailures.Inc()
}

func (m *Metrics) InteractionsRejected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.InteractionsDropped.Add(float64(n))
}

// ObserveLLM records one model call; err marks it failed.
func (m *Metrics) ObserveLLM(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.LLMDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		m.LLMErrors.WithLabelValues(provider).Inc()
	}
}

// FetchFailed counts an upstream failure; kind is e.g. "status", "transport" or "robots".
func (m *Metrics) FetchFailed(kind string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(kind).Inc()
}
