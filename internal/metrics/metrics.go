// Package metrics exposes Prometheus collectors for HTTP traffic: requests
// served by the status API and requests made to the progress endpoint.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// HTTP holds the request collectors. Register one per registry.
type HTTP struct {
	requestsTotal           *prometheus.CounterVec
	requestDurationSeconds  *prometheus.HistogramVec
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamDurationSeconds *prometheus.HistogramVec
}

// NewHTTP creates the collectors and registers them with reg.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	m := &HTTP{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_http_requests_total",
			Help: "Status API requests, labeled by method, route and code.",
		}, []string{"method", "route", "code"}),
		requestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progress_http_request_duration_seconds",
			Help:    "Status API latency, labeled by method and route.",
			Buckets: latencyBuckets,
		}, []string{"method", "route"}),
		upstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_upstream_requests_total",
			Help: "Requests to the progress endpoint that got a response, labeled by method and code.",
		}, []string{"method", "code"}),
		upstreamDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progress_upstream_request_duration_seconds",
			Help:    "Progress endpoint latency, labeled by method and code.",
			Buckets: latencyBuckets,
		}, []string{"method", "code"}),
	}
	for _, c := range []prometheus.Collector{
		m.requestsTotal,
		m.requestDurationSeconds,
		m.upstreamRequestsTotal,
		m.upstreamDurationSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register http collector: %w", err)
		}
	}
	return m, nil
}

// Middleware is a chi middleware that records status API request metrics.
func (m *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).Inc()
		m.requestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RoundTripper instruments next; a nil next means http.DefaultTransport.
func (m *HTTP) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.upstreamRequestsTotal,
		promhttp.InstrumentRoundTripperDuration(m.upstreamDurationSeconds, next))
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
