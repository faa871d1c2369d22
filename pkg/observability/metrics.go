package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the telemetry pipeline
type Metrics struct {
	// Event metrics
	EventsTotal        *prometheus.CounterVec
	EventsDroppedTotal *prometheus.CounterVec

	// Sanitizer metrics
	SanitizedPropsTotal *prometheus.CounterVec

	// Provider metrics
	ProviderInitTotal  *prometheus.CounterVec
	ProviderSinkErrors *prometheus.CounterVec

	// Security metrics
	UnsafeURLsBlockedTotal *prometheus.CounterVec

	// Collector metrics
	VitalsReportsTotal    prometheus.Counter
	VitalsMetricsReported *prometheus.CounterVec
	ScrollMilestonesTotal *prometheus.CounterVec

	// Monitoring metrics
	ErrorReportsTotal *prometheus.CounterVec

	// Dev sink HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_events_total",
				Help: "Total number of events handed to a provider",
			},
			[]string{"name", "status"},
		),
		EventsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_events_dropped_total",
				Help: "Total number of events dropped before delivery",
			},
			[]string{"reason"},
		),
		SanitizedPropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_sanitized_properties_total",
				Help: "Total number of event properties removed by the PII sanitizer",
			},
			[]string{"rule"},
		),
		ProviderInitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_provider_init_total",
				Help: "Provider initialization outcomes",
			},
			[]string{"provider", "outcome"},
		),
		ProviderSinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_provider_sink_errors_total",
				Help: "Total number of recovered provider sink failures",
			},
			[]string{"provider"},
		),
		UnsafeURLsBlockedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_unsafe_urls_blocked_total",
				Help: "Total number of navigations refused by the URL validator",
			},
			[]string{"reason"},
		),
		VitalsReportsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_vitals_reports_total",
				Help: "Total number of finalized Core Web Vitals snapshots",
			},
		),
		VitalsMetricsReported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_vitals_metrics_reported_total",
				Help: "Populated metrics per finalized vitals snapshot",
			},
			[]string{"metric"},
		),
		ScrollMilestonesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_scroll_milestones_total",
				Help: "Scroll depth milestones fired",
			},
			[]string{"milestone"},
		),
		ErrorReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_error_reports_total",
				Help: "Total number of monitoring error reports",
			},
			[]string{"reason"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_http_requests_total",
				Help: "Total number of HTTP requests to the dev sink",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beacon_http_request_duration_seconds",
				Help:    "Dev sink HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.EventsTotal,
		m.EventsDroppedTotal,
		m.SanitizedPropsTotal,
		m.ProviderInitTotal,
		m.ProviderSinkErrors,
		m.UnsafeURLsBlockedTotal,
		m.VitalsReportsTotal,
		m.VitalsMetricsReported,
		m.ScrollMilestonesTotal,
		m.ErrorReportsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
