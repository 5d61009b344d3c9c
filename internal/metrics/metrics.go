package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes recorded by RecordQuery.
const (
	OutcomeDisplayed = "displayed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Registry holds all Prometheus metrics. A nil *Registry records nothing.
type Registry struct {
	*prometheus.Registry

	// Outbound HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Query metrics
	queriesTotal    *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	staleResponses  prometheus.Counter
	lastQueryTicker *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_client_requests_total",
				Help: "Total number of requests sent to the analysis service",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_client_request_duration_seconds",
				Help:    "Analysis service request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_client_requests_in_flight",
				Help: "Number of analysis service requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocklens_queries_total",
			Help: "Total number of analysis queries by outcome",
		},
		[]string{"outcome"},
	)
	r.queryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stocklens_query_duration_seconds",
			Help:    "Time from dispatch to displayed or failed state",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	r.staleResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stocklens_stale_responses_total",
			Help: "Responses dropped because a newer query was dispatched",
		},
	)
	r.lastQueryTicker = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stocklens_last_query_timestamp_seconds",
			Help: "Unix time of the last completed query per ticker",
		},
		[]string{"ticker"},
	)

	reg.MustRegister(r.queriesTotal)
	reg.MustRegister(r.queryDuration)
	reg.MustRegister(r.staleResponses)
	reg.MustRegister(r.lastQueryTicker)

	return r
}

// Handler exposes the registry for scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// RecordRequest records metrics for an outbound HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Dec()
}

// RecordQuery records a query reaching a terminal state. Rejected queries
// never reach the service and carry no duration.
func (r *Registry) RecordQuery(outcome string, duration float64) {
	if r == nil {
		return
	}
	r.queriesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeRejected {
		r.queryDuration.Observe(duration)
	}
}

// RecordStale counts a dropped out-of-order response.
func (r *Registry) RecordStale() {
	if r == nil {
		return
	}
	r.staleResponses.Inc()
}

// MarkQueried stamps the completion time for a ticker.
func (r *Registry) MarkQueried(ticker string, unix float64) {
	if r == nil {
		return
	}
	r.lastQueryTicker.WithLabelValues(ticker).Set(unix)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	default:
		return "error"
	}
}
