package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	crmFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_fetch_total",
		Help: "Upstream CRM calls by source, purpose and outcome (ok, error, cache).",
	}, []string{"source", "purpose", "outcome"})

	leadsNormalized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leads_normalized_total",
		Help: "Lead records normalized by source.",
	}, []string{"source"})
)

func init() {
	Registry.MustRegister(httpRequests, httpDuration, crmFetches, leadsNormalized,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

func ObserveFetch(source string, purpose int, outcome string) {
	crmFetches.WithLabelValues(source, strconv.Itoa(purpose), outcome).Inc()
}

func ObserveNormalized(source string, n int) {
	leadsNormalized.WithLabelValues(source).Add(float64(n))
}

func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Metrics usa el patrón de chi como label para no explotar cardinalidad.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := routePattern(r)
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status(ww))).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func status(ww middleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
