package server

import (
	"net/http"
	"strconv"
	"time"

	"rubyistrun/internal/content"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "rubyistrun"

// Metrics owns a private registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	feedItems       prometheus.Gauge
	feedErrors      prometheus.Counter
	indexRuns       *prometheus.CounterVec
	indexDuration   prometheus.Histogram
	indexedEntries  *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		feedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "feed_items",
			Help:      "Number of items in the last generated feed",
		}),
		feedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "feed_errors_total",
			Help:      "Feed generations that failed",
		}),
		indexRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "index_runs_total",
			Help:      "Content index runs by result",
		}, []string{"result"}),
		indexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "index_duration_seconds",
			Help:      "Time taken to load and store all collections",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		indexedEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "indexed_entries",
			Help:      "Entries in the store per collection",
		}, []string{"collection"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.feedItems,
		m.feedErrors,
		m.indexRuns,
		m.indexDuration,
		m.indexedEntries,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(method, path string, status int, took time.Duration) {
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(took.Seconds())
}

// ObserveIndex records one index run. The indexer calls it after every run.
func (m *Metrics) ObserveIndex(counts map[content.Collection]int, took time.Duration, err error) {
	m.indexDuration.Observe(took.Seconds())
	if err != nil {
		m.indexRuns.WithLabelValues("error").Inc()
		return
	}
	m.indexRuns.WithLabelValues("ok").Inc()
	for c, n := range counts {
		m.indexedEntries.WithLabelValues(string(c)).Set(float64(n))
	}
}
