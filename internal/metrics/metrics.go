// Package metrics defines the Prometheus metrics exported by the importer.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the importer's Prometheus collectors.
type Metrics struct {
	// Pipeline outcomes
	ImportsTotal   *prometheus.CounterVec
	AvatarsTotal   *prometheus.CounterVec
	ImportDuration prometheus.Histogram

	// Extraction
	LLMRequestDuration *prometheus.HistogramVec
	CacheLookupsTotal  *prometheus.CounterVec

	// Notion API
	NotionRequestsTotal *prometheus.CounterVec

	// HTTP API
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// Default returns the process-wide metrics, registering them with the
// default registry on first use.
//
// Metrics:
//   - profile_importer_imports_total{status} - imports by outcome (saved, duplicate, failed)
//   - profile_importer_avatars_total{found} - avatar lookups
//   - profile_importer_import_duration_seconds - end-to-end import time
//   - profile_importer_llm_request_duration_seconds{provider,outcome}
//   - profile_importer_extraction_cache_lookups_total{result} - hit, miss, error
//   - profile_importer_notion_requests_total{operation,status}
//   - profile_importer_http_requests_total{method,route,status}
//   - profile_importer_http_request_duration_seconds{route}
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
	return globalMetrics
}

// NewForRegistry registers a fresh set of collectors on reg. Tests use it
// with a private registry.
func NewForRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		ImportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_importer_imports_total",
				Help: "Total number of profile imports by outcome",
			},
			[]string{"status"},
		),
		AvatarsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_importer_avatars_total",
				Help: "Total number of avatar lookups by result",
			},
			[]string{"found"},
		),
		ImportDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "profile_importer_import_duration_seconds",
				Help:    "Duration of a full import (snapshot to Notion page)",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
			},
		),
		LLMRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profile_importer_llm_request_duration_seconds",
				Help:    "Duration of LLM extraction requests",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"provider", "outcome"},
		),
		CacheLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_importer_extraction_cache_lookups_total",
				Help: "Extraction cache lookups by result",
			},
			[]string{"result"},
		),
		NotionRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_importer_notion_requests_total",
				Help: "Notion API requests by operation and HTTP status",
			},
			[]string{"operation", "status"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_importer_http_requests_total",
				Help: "HTTP API requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profile_importer_http_request_duration_seconds",
				Help:    "HTTP API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Cache lookup labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// ObserveLLM records one LLM call.
func (m *Metrics) ObserveLLM(provider string, elapsed time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.LLMRequestDuration.WithLabelValues(provider, outcome).Observe(elapsed.Seconds())
}

// ObserveNotion records one Notion API call. status 0 means the request
// never got a response.
func (m *Metrics) ObserveNotion(operation string, status int) {
	label := "none"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.NotionRequestsTotal.WithLabelValues(operation, label).Inc()
}

// ObserveImport records a finished import.
func (m *Metrics) ObserveImport(status string, avatarFound bool, elapsed time.Duration) {
	m.ImportsTotal.WithLabelValues(status).Inc()
	m.AvatarsTotal.WithLabelValues(strconv.FormatBool(avatarFound)).Inc()
	m.ImportDuration.Observe(elapsed.Seconds())
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
