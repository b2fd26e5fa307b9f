package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the NOML pipeline.
type Metrics struct {
	config MetricsConfig

	// Pipeline metrics
	documentsParsed   *prometheus.CounterVec
	documentsResolved *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec

	// Include metrics
	includesResolved *prometheus.CounterVec
	remoteFetches    *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec

	// Error metrics
	errorsByCategory *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op instance; every recording method tolerates nil vectors.
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		documentsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_parsed_total",
				Help:      "Total number of documents parsed",
			},
			[]string{"status"},
		),
		documentsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_resolved_total",
				Help:      "Total number of documents resolved",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   buckets,
			},
			[]string{"stage"},
		),
		includesResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "includes_resolved_total",
				Help:      "Total number of include directives resolved",
			},
			[]string{"kind"},
		),
		remoteFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_fetches_total",
				Help:      "Total number of remote include fetches",
			},
			[]string{"status"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_fetch_duration_seconds",
				Help:      "Duration of remote include fetches in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		errorsByCategory: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by category",
			},
			[]string{"category"},
		),
	}

	collectors := []prometheus.Collector{
		m.documentsParsed,
		m.documentsResolved,
		m.stageDuration,
		m.includesResolved,
		m.remoteFetches,
		m.fetchDuration,
		m.errorsByCategory,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// RecordParse counts a parse attempt and its duration.
func (m *Metrics) RecordParse(d time.Duration, err error) {
	if m.documentsParsed == nil {
		return
	}
	m.documentsParsed.WithLabelValues(status(err)).Inc()
	m.stageDuration.WithLabelValues("parse").Observe(d.Seconds())
}

// RecordResolve counts a resolution attempt and its duration.
func (m *Metrics) RecordResolve(d time.Duration, err error) {
	if m.documentsResolved == nil {
		return
	}
	m.documentsResolved.WithLabelValues(status(err)).Inc()
	m.stageDuration.WithLabelValues("resolve").Observe(d.Seconds())
}

// RecordInclude counts a resolved include. Kind is "file" or "remote".
func (m *Metrics) RecordInclude(kind string) {
	if m.includesResolved == nil {
		return
	}
	m.includesResolved.WithLabelValues(kind).Inc()
}

// RecordFetch counts a remote fetch and its duration.
func (m *Metrics) RecordFetch(d time.Duration, err error) {
	if m.remoteFetches == nil {
		return
	}
	m.remoteFetches.WithLabelValues(status(err)).Inc()
	m.fetchDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

// RecordError counts an error under its stable category string.
func (m *Metrics) RecordError(category string) {
	if m.errorsByCategory == nil {
		return
	}
	m.errorsByCategory.WithLabelValues(category).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the metrics HTTP server. Blocks until the server fails.
func (m *Metrics) Serve() error {
	if !m.config.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, m.Handler())
	return http.ListenAndServe(m.config.ListenAddress, mux)
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
