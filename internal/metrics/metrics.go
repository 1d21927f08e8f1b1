// Package metrics exposes the service's Prometheus collectors on a private
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"imaginify/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected *prometheus.CounterVec
	creditsDebited    prometheus.Counter
	creditsRefunded   prometheus.Counter
	creditsPurchased  prometheus.Counter
	openDrafts        prometheus.GaugeFunc
}

// New registers the collectors. openDrafts reports the number of live draft
// sessions and may be nil.
func New(openDrafts func() float64) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imaginify_api_requests_total",
			Help: "Total HTTP requests handled by the API.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imaginify_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imaginify_api_rate_limit_rejections_total",
			Help: "Total API requests rejected by rate limiting.",
		}, []string{"route"}),
		creditsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imaginify_credits_debited_total",
			Help: "Credits debited by applied transformations.",
		}),
		creditsRefunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imaginify_credits_refunded_total",
			Help: "Credits refunded after failed saves.",
		}),
		creditsPurchased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imaginify_credits_purchased_total",
			Help: "Credits granted by completed checkouts.",
		}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.rateLimitRejected,
		m.creditsDebited,
		m.creditsRefunded,
		m.creditsPurchased,
	)
	if openDrafts != nil {
		m.openDrafts = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "imaginify_open_drafts",
			Help: "Transformation drafts currently held in memory.",
		}, openDrafts)
		registry.MustRegister(m.openDrafts)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request count and latency for h under the route of a
// mux pattern such as "GET /v1/images/{id}".
func (m *Metrics) Instrument(pattern string, h http.Handler) http.Handler {
	route := RouteLabel(pattern)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &middleware.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		h.ServeHTTP(recorder, r)

		status := strconv.Itoa(recorder.Status)
		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// RouteLabel strips the method from a mux pattern.
func RouteLabel(pattern string) string {
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		return strings.TrimSpace(pattern[i+1:])
	}
	return pattern
}

func (m *Metrics) RateLimitRejected(route string) {
	m.rateLimitRejected.WithLabelValues(route).Inc()
}

func (m *Metrics) CreditsDebited(n int) {
	m.creditsDebited.Add(float64(n))
}

func (m *Metrics) CreditsRefunded(n int) {
	m.creditsRefunded.Add(float64(n))
}

func (m *Metrics) CreditsPurchased(n int) {
	m.creditsPurchased.Add(float64(n))
}
