// Package metrics exposes Prometheus collectors for the scraper.
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

// Detail fetch outcomes beyond the fetch failure categories.
const (
	OutcomeOK         = "ok"
	OutcomeParse      = "parse"
	OutcomeStructure  = "structure"
	OutcomeIncomplete = "incomplete"
)

var (
	detailFetchesTotal         *prometheus.CounterVec
	missingFieldsTotal         *prometheus.CounterVec
	recordsWrittenTotal        *prometheus.CounterVec
	sinkErrorsTotal            *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	runDurationSeconds         prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		detailFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_detail_fetches_total",
				Help: "Total number of detail pages processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		missingFieldsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_missing_fields_total",
				Help: "Total number of fields not found on detail pages, labeled by field.",
			},
			[]string{"field"},
		)

		recordsWrittenTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_records_written_total",
				Help: "Total number of records appended, labeled by sink.",
			},
			[]string{"sink"},
		)

		sinkErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_sink_errors_total",
				Help: "Total number of failed sink appends, labeled by category.",
			},
			[]string{"category"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_active_workers",
				Help: "Number of workers currently extracting a detail page.",
			},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_run_duration_seconds",
				Help:    "Histogram of full scrape run durations.",
				Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
			},
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
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDetail increments the detail page counter for outcome.
func ObserveDetail(outcome string) {
	detailFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveMissingField increments the missing field counter.
func ObserveMissingField(field string) {
	missingFieldsTotal.WithLabelValues(field).Inc()
}

// ObserveRecordsWritten adds n to the records written counter for sink.
func ObserveRecordsWritten(sink string, n int) {
	if n <= 0 {
		return
	}
	recordsWrittenTotal.WithLabelValues(sink).Add(float64(n))
}

// ObserveSinkError increments the sink error counter.
func ObserveSinkError(category string) {
	sinkErrorsTotal.WithLabelValues(category).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveRun records the duration of a full run.
func ObserveRun(duration time.Duration) {
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
