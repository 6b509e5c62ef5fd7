package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// It is passed explicitly to every component that records metrics. All
// Record helpers are safe to call on a nil *Metrics.
type Metrics struct {
	// Helius API Metrics
	heliusCallsTotal     *prometheus.CounterVec
	heliusCallDuration   *prometheus.HistogramVec
	heliusRateLimitHits  prometheus.Counter
	heliusRetries        *prometheus.CounterVec
	heliusRecordsPerPage prometheus.Histogram

	// Pipeline Metrics
	transactionsFetchedTotal    prometheus.Counter
	transactionsDroppedTotal    *prometheus.CounterVec
	transactionsNormalizedTotal prometheus.Counter
	normalizationDegradedTotal  *prometheus.CounterVec
	transactionsFilteredTotal   *prometheus.CounterVec

	// Export Metrics
	exportsTotal   *prometheus.CounterVec
	exportRows     prometheus.Histogram
	exportDuration *prometheus.HistogramVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		heliusCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helius_api_calls_total",
				Help: "Total number of Helius API page requests by status",
			},
			[]string{"status"},
		),
		heliusCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "helius_api_call_duration_seconds",
				Help:    "Duration of Helius API page requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"status"},
		),
		heliusRateLimitHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "helius_api_rate_limit_hits_total",
				Help: "Total number of Helius API rate limit responses (429)",
			},
		),
		heliusRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helius_api_retries_total",
				Help: "Total number of Helius API retry attempts",
			},
			[]string{"reason"},
		),
		heliusRecordsPerPage: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "helius_api_records_per_page",
				Help:    "Number of raw records returned per Helius page",
				Buckets: []float64{0, 1, 10, 25, 50, 75, 100},
			},
		),

		transactionsFetchedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "transactions_fetched_total",
				Help: "Total number of raw transactions kept by the fetcher",
			},
		),
		transactionsDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_dropped_total",
				Help: "Total number of raw transactions dropped during validation",
			},
			[]string{"reason"},
		),
		transactionsNormalizedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "transactions_normalized_total",
				Help: "Total number of transactions normalized",
			},
		),
		normalizationDegradedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_normalization_degraded_total",
				Help: "Total number of normalized fields that fell back to defaults",
			},
			[]string{"field"},
		),
		transactionsFilteredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_filtered_total",
				Help: "Total number of transactions removed by each filter stage",
			},
			[]string{"stage"},
		),

		exportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exports_total",
				Help: "Total number of export runs by outcome",
			},
			[]string{"outcome"},
		),
		exportRows: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "export_rows",
				Help:    "Number of rows in produced exports",
				Buckets: []float64{0, 1, 10, 100, 500, 1000, 5000, 10000},
			},
		),
		exportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "export_duration_seconds",
				Help:    "Duration of export pipeline runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 10, 60},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Helius API metric helpers

// RecordHeliusCall records one page request with its duration.
func (m *Metrics) RecordHeliusCall(status string, duration float64) {
	if m == nil {
		return
	}
	m.heliusCallsTotal.WithLabelValues(status).Inc()
	m.heliusCallDuration.WithLabelValues(status).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit() {
	if m == nil {
		return
	}
	m.heliusRateLimitHits.Inc()
}

// RecordHeliusRetry records a retry attempt.
func (m *Metrics) RecordHeliusRetry(reason string) {
	if m == nil {
		return
	}
	m.heliusRetries.WithLabelValues(reason).Inc()
}

// RecordRecordsPerPage records the number of raw records in one page.
func (m *Metrics) RecordRecordsPerPage(count int) {
	if m == nil {
		return
	}
	m.heliusRecordsPerPage.Observe(float64(count))
}

// Pipeline metric helpers

func (m *Metrics) RecordTransactionsFetched(count int) {
	if m == nil {
		return
	}
	m.transactionsFetchedTotal.Add(float64(count))
}

func (m *Metrics) RecordTransactionsDropped(reason string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.transactionsDroppedTotal.WithLabelValues(reason).Add(float64(count))
}

func (m *Metrics) RecordTransactionNormalized() {
	if m == nil {
		return
	}
	m.transactionsNormalizedTotal.Inc()
}

// RecordNormalizationDegraded records a field that fell back to its zero value.
func (m *Metrics) RecordNormalizationDegraded(field string) {
	if m == nil {
		return
	}
	m.normalizationDegradedTotal.WithLabelValues(field).Inc()
}

func (m *Metrics) RecordTransactionsFiltered(stage string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.transactionsFilteredTotal.WithLabelValues(stage).Add(float64(count))
}

// Export metric helpers

// RecordExport records the outcome of one pipeline run.
func (m *Metrics) RecordExport(outcome string, rows int, duration float64) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(outcome).Inc()
	m.exportDuration.WithLabelValues(outcome).Observe(duration)
	if outcome == "success" || outcome == "empty" {
		m.exportRows.Observe(float64(rows))
	}
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	if m == nil {
		return
	}
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
