package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-service/internal/metrics"
	"github.com/i474232898/weather-service/internal/store"
	"github.com/i474232898/weather-service/internal/weather"
)

var testNow = time.Date(2024, 10, 14, 12, 0, 0, 0, time.UTC)

// stubFeed answers every location with a fixed reply.
type stubFeed struct {
	current  *weather.CurrentWeatherResponse
	forecast *weather.ForecastWeatherResponse
	err      error
}

func (f *stubFeed) Current(context.Context, string) (*weather.CurrentWeatherResponse, error) {
	return f.current, f.err
}

func (f *stubFeed) Forecast(context.Context, string) (*weather.ForecastWeatherResponse, error) {
	return f.forecast, f.err
}

type stubCountries struct {
	seen string
	code string
}

func (s *stubCountries) Country(_ context.Context, ip string) string {
	s.seen = ip
	return s.code
}

func zurichReply() *weather.CurrentWeatherResponse {
	dt := weather.NewUnixTime(testNow.Add(-10 * time.Minute))
	return &weather.CurrentWeatherResponse{
		Cod:     "200",
		Name:    "Zurich",
		Weather: []weather.WeatherDescription{{ID: 800, Main: "Clear", Description: "clear sky", Icon: "01d"}},
		Main:    &weather.WeatherInfo{Temp: 14.2, Pressure: 1020, Humidity: 60},
		Sys:     &weather.SunriseSunset{Sunrise: dt, Sunset: dt},
		Coord:   &weather.Coord{Lon: 8.55, Lat: 47.37},
		Dt:      &dt,
	}
}

func forecastReply(n int) *weather.ForecastWeatherResponse {
	reply := &weather.ForecastWeatherResponse{Cod: "200", Cnt: n}
	for i := 0; i < n; i++ {
		reply.List = append(reply.List, weather.ForecastSlot{Dt: weather.NewUnixTime(testNow.Add(time.Duration(i) * 3 * time.Hour))})
	}
	return reply
}

type fixture struct {
	app       *fiber.App
	mem       *store.MemoryStore
	feed      *stubFeed
	countries *stubCountries
	reg       *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mem:       store.NewMemoryStore(),
		feed:      &stubFeed{current: zurichReply(), forecast: forecastReply(40)},
		countries: &stubCountries{code: "HU"},
		reg:       prometheus.NewRegistry(),
	}
	rec := metrics.New(f.reg)
	svc := weather.NewService(f.feed, f.mem, f.mem,
		weather.WithClock(func() time.Time { return testNow }),
		weather.WithMetrics(rec),
	)
	f.app = NewApp(Dependencies{
		Weather:   svc,
		Locations: f.mem,
		Countries: f.countries,
		Metrics:   rec,
		Gatherer:  f.reg,
		Ping:      func(context.Context) error { return nil },
		Logger:    zerolog.Nop(),
	})
	return f
}

func (f *fixture) get(t *testing.T, target string, header ...string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestCurrentWeather(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/weather/current/Zurich,CH")
	require.Equal(t, http.StatusOK, status)

	var got weather.CurrentWeather
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Zurich,CH", got.Location)
	assert.Equal(t, 14.2, got.Info.Temp)
	assert.Equal(t, "icon-weather-001", got.BootstrapIcon)

	position, err := f.mem.GetPosition(context.Background(), "zurich,ch")
	require.NoError(t, err)
	require.NotNil(t, position)
}

func TestCurrentWeatherUnknown(t *testing.T) {
	f := newFixture(t)
	f.feed.current = nil

	status, body := f.get(t, "/weather/current/Atlantis")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Unknown location Atlantis", string(body))
}

func TestCurrentWeatherEscapedPath(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/weather/current/"+url.PathEscape("São Paulo,BR"))
	require.Equal(t, http.StatusOK, status)

	var got weather.CurrentWeather
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "São Paulo,BR", got.Location)
}

func TestForecast(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/weather/forecast/Zurich,CH")
	require.Equal(t, http.StatusOK, status)

	var got []weather.ForecastWeather
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 40)
	assert.True(t, got[0].Timestamp.After(got[39].Timestamp))
}

func TestForecastUnknown(t *testing.T) {
	f := newFixture(t)
	f.feed.forecast = nil
	f.feed.err = errors.New("city not found")

	status, _ := f.get(t, "/weather/forecast/Atlantis")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSuggest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, loc := range []string{"zurich,ch", "zurich", "adliswil,ch", "zug,ch", "berne,ch"} {
		require.NoError(t, f.mem.Store(ctx, loc, weather.GeoPosition{}))
	}

	status, body := f.get(t, "/location/suggest?query=Zu")
	require.Equal(t, http.StatusOK, status)

	var got suggestionResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []string{"Zug, CH", "Zurich, CH"}, got.Suggestions)
}

func TestSuggestCapsResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, loc := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a10", "a11", "a12"} {
		require.NoError(t, f.mem.Store(ctx, loc, weather.GeoPosition{}))
	}

	status, body := f.get(t, "/location/suggest?query=")
	require.Equal(t, http.StatusOK, status)

	var got suggestionResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got.Suggestions, 10)
}

func TestSuggestMissingQuery(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/location/suggest")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing query", string(body))
}

func TestSuggestEmptyStore(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/location/suggest?query=zur")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"suggestions":[]}`, string(body))
}

func TestCountryByIP(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/location/ip", fiber.HeaderXForwardedFor, "81.2.69.160, 10.0.0.1")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"city":"Budapest","country":"HU"}`, string(body))
	assert.Equal(t, "81.2.69.160", f.countries.seen)
}

func TestCountryByIPUnknownCapital(t *testing.T) {
	f := newFixture(t)
	f.countries.code = "XX"

	status, _ := f.get(t, "/location/ip")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGeo(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mem.Store(context.Background(), "adliswil,ch", weather.GeoPosition{Latitude: 47.31, Longitude: 8.52}))

	status, body := f.get(t, "/geo/"+url.PathEscape("Adliswil, Switzerland"))
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"latitude":47.31,"longitude":8.52}`, string(body))

	status, body = f.get(t, "/geo/Atlantis")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Unknown location Atlantis", string(body))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	status, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","service":"weather-service"}`, string(body))
}

func TestHealthDegraded(t *testing.T) {
	app := NewApp(Dependencies{
		Ping:   func(context.Context) error { return errors.New("connection refused") },
		Logger: zerolog.Nop(),
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/weather/current/Zurich,CH")

	status, body := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `weather_cache_lookups_total{kind="current",result="miss"} 1`)
	assert.Contains(t, string(body), "weather_http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	app := NewApp(Dependencies{Logger: zerolog.Nop()})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStorageErrorIsInternal(t *testing.T) {
	app := NewApp(Dependencies{
		Weather: weather.NewService(&stubFeed{}, store.NewWeatherRepo(nil), store.NewLocationRepo(nil)),
		Logger:  zerolog.Nop(),
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/weather/current/Zurich", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture(t)
	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(fiber.HeaderXRequestID), 36)
}
