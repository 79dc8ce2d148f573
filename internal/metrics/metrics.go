// Package metrics provides Prometheus metrics for service-a.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	DownstreamDuration  prometheus.Histogram
	DownstreamResponses *prometheus.CounterVec
	DownstreamErrors    *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "service_a_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "service_a_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "service_a_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		DownstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "service_a_downstream_request_duration_seconds",
			Help:    "Latency of calls to service-b in seconds, including failed calls.",
			Buckets: defaultBuckets,
		}),

		DownstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "service_a_downstream_responses_total",
			Help: "Responses received from service-b by status code.",
		}, []string{"status_code"}),

		DownstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "service_a_downstream_errors_total",
			Help: "Failed forwards to service-b by error kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.DownstreamDuration,
		m.DownstreamResponses,
		m.DownstreamErrors,
	)

	return m
}

var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod maps non-standard methods to "other" to bound label cardinality.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownRoutes lists the allowed route label values.
var knownRoutes = []string{"/call-b", "/healthz", "/status", "/metrics"}

// NormalizeRoute returns a bounded route label for path. Query strings and
// trailing segments are ignored; unknown paths become "other".
func NormalizeRoute(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, r := range knownRoutes {
		if path == r || strings.HasPrefix(path, r+"/") {
			return r
		}
	}
	return "other"
}
