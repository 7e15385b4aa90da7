package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CacheLookup("current", true)
	m.CacheLookup("current", false)
	m.CacheLookup("current", false)
	m.FeedFetch("forecast", true)
	m.FeedFetch("forecast", false)
	m.IncRequestsTotal("/weather/current/:location", 404)
	m.ObserveRequestDuration("/weather/current/:location", 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("current", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("current", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedFetches.WithLabelValues("forecast", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedFetches.WithLabelValues("forecast", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/weather/current/:location", "4xx")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestNoop(t *testing.T) {
	m := Noop()
	m.CacheLookup("current", true)
	m.FeedFetch("current", false)
	m.IncRequestsTotal("/health", 200)
	m.ObserveRequestDuration("/health", time.Millisecond)
}

func TestHTTPStatusBucket(t *testing.T) {
	assert.Equal(t, "1xx", httpStatusBucket(101))
	assert.Equal(t, "2xx", httpStatusBucket(200))
	assert.Equal(t, "3xx", httpStatusBucket(304))
	assert.Equal(t, "4xx", httpStatusBucket(404))
	assert.Equal(t, "5xx", httpStatusBucket(503))
}
