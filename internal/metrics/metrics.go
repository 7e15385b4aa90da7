// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is what the cache, the feeds and the HTTP layer report into.
type Recorder interface {
	CacheLookup(kind string, hit bool)
	FeedFetch(kind string, ok bool)
	IncRequestsTotal(route string, status int)
	ObserveRequestDuration(route string, duration time.Duration)
}

type Metrics struct {
	cacheLookups    *prometheus.CounterVec
	feedFetches     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_cache_lookups_total",
			Help: "Storage lookups by record class and result",
		}, []string{"kind", "result"}),

		feedFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_feed_fetches_total",
			Help: "Upstream feed fetches by record class and outcome",
		}, []string{"kind", "outcome"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) CacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) FeedFetch(kind string, ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.feedFetches.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncRequestsTotal(route string, status int) {
	m.requestsTotal.WithLabelValues(route, httpStatusBucket(status)).Inc()
}

func (m *Metrics) ObserveRequestDuration(route string, duration time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop returns a Recorder that drops everything, for when metrics are disabled.
func Noop() Recorder {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) CacheLookup(string, bool)                    {}
func (noopMetrics) FeedFetch(string, bool)                      {}
func (noopMetrics) IncRequestsTotal(string, int)                {}
func (noopMetrics) ObserveRequestDuration(string, time.Duration) {}
