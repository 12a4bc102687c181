package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the feed engine
type Metrics struct {
	// Exposure throttle
	ThrottleDecisions   *prometheus.CounterVec
	ImpressionsRecorded *prometheus.CounterVec

	// Collaborator failures that were absorbed by a fail-open default
	StoreFailures *prometheus.CounterVec

	// External catalog
	CatalogRequests        *prometheus.CounterVec
	CatalogRequestDuration *prometheus.HistogramVec
	CatalogBreakerState    *prometheus.GaugeVec

	// Ranking and matching
	SimilarCandidatesRanked *prometheus.CounterVec
	SimilarRankDuration     *prometheus.HistogramVec
	TasteMatchScans         prometheus.Counter
	TasteMatchScanDuration  prometheus.Histogram

	// Ops HTTP server
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			ThrottleDecisions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_throttle_decisions_total",
					Help: "Exposure throttle decisions by card type and outcome",
				},
				[]string{"card_type", "decision"},
			),
			ImpressionsRecorded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_impressions_recorded_total",
					Help: "Card impressions written to the exposure ledger",
				},
				[]string{"card_type"},
			),
			StoreFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_store_failures_total",
					Help: "Data store failures absorbed by a conservative default",
				},
				[]string{"store", "operation"},
			),
			CatalogRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "catalog_requests_total",
					Help: "Requests made to the external media catalog",
				},
				[]string{"endpoint", "status"},
			),
			CatalogRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "catalog_request_duration_seconds",
					Help:    "Catalog request latency in seconds, including pacing delay",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"endpoint"},
			),
			CatalogBreakerState: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "catalog_circuit_breaker_state",
					Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
				},
				[]string{"name"},
			),
			SimilarCandidatesRanked: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "similar_candidates_ranked_total",
					Help: "Catalog candidates that passed filtering and were scored",
				},
				[]string{"media_kind"},
			),
			SimilarRankDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "similar_rank_duration_seconds",
					Help:    "End-to-end similar content ranking time in seconds",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"media_kind"},
			),
			TasteMatchScans: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "taste_match_scans_total",
					Help: "Full-population similar user scans",
				},
			),
			TasteMatchScanDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "taste_match_scan_duration_seconds",
					Help:    "Time to scan the population for similar users",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
				},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path", "status"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
