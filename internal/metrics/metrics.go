// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gcbaptista/go-geo-search/geospatial"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geosearch_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	HTTPRequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geosearch_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"route"})
	SearchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geosearch_searches_total",
		Help: "Total searches by ordering mode",
	}, []string{"mode"})
	SearchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geosearch_search_duration_ms",
		Help:    "Search evaluation time in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
	}, []string{"mode"})
	DocumentsEvaluatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geosearch_documents_evaluated_total",
		Help: "Documents whose stored coordinates were decoded during searches",
	})
	DocumentsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geosearch_documents_skipped_total",
		Help: "Documents excluded during searches, by reason",
	}, []string{"reason"})
	DocumentsIndexedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geosearch_documents_indexed_total",
		Help: "Documents added or replaced",
	})
	Indexes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geosearch_indexes",
		Help: "Number of open indexes",
	})
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDurationMs)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDurationMs)
	prometheus.MustRegister(DocumentsEvaluatedTotal)
	prometheus.MustRegister(DocumentsSkippedTotal)
	prometheus.MustRegister(DocumentsIndexedTotal)
	prometheus.MustRegister(Indexes)
}

// ObservePostingStats adds the counters of one finished traversal.
func ObservePostingStats(stats geospatial.PostingSourceStats) {
	DocumentsEvaluatedTotal.Add(float64(stats.Evaluated))
	DocumentsSkippedTotal.WithLabelValues("malformed").Add(float64(stats.SkippedMalformed))
	DocumentsSkippedTotal.WithLabelValues("out_of_range").Add(float64(stats.SkippedOutOfRange))
	DocumentsSkippedTotal.WithLabelValues("below_weight").Add(float64(stats.SkippedBelowWeight))
}

// Handler serves the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
