// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe_ingest"

// Registry is the collector registry served by Handler.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Scrapes counts scrape attempts by host and outcome (ok, error).
	Scrapes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scrape",
		Name:      "requests_total",
		Help:      "Scrape attempts by host and outcome.",
	}, []string{"host", "outcome"})

	// FieldFallbacks counts metadata fields that could not be read and were left empty.
	FieldFallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scrape",
		Name:      "field_fallbacks_total",
		Help:      "Metadata fields left empty because the page did not provide them.",
	}, []string{"field"})

	// ExtractionDuration observes AI extraction latency by path (image, text).
	ExtractionDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "extraction_duration_seconds",
		Help:      "Latency of AI-assisted extraction.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"path"})

	// EstimatedInputTokens observes the pre-call token estimate.
	EstimatedInputTokens = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "estimated_input_tokens",
		Help:      "Estimated input tokens per completion request.",
		Buckets:   prometheus.ExponentialBuckets(250, 2, 8),
	}, []string{"path"})

	// CostUSD accumulates estimated and actual spend.
	CostUSD = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "cost_usd_total",
		Help:      "Accumulated AI spend in USD by kind (estimated, actual).",
	}, []string{"kind"})

	// ExtractionErrors counts failed extractions by error code.
	ExtractionErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "errors_total",
		Help:      "Failed AI extractions by error code.",
	}, []string{"path", "code"})

	// CacheLookups counts reply cache lookups by result (hit, miss).
	CacheLookups = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "cache_lookups_total",
		Help:      "Reply cache lookups by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
