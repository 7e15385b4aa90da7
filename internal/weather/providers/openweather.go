package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-service/internal/weather"
)

// DefaultOpenWeatherURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

// ErrMissingAPIKey is returned when the feed is built without a key.
var ErrMissingAPIKey = errors.New("openweather api key is not configured")

// OpenWeatherFeed implements weather.Feed against OpenWeatherMap.
type OpenWeatherFeed struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

var _ weather.Feed = (*OpenWeatherFeed)(nil)

// OpenWeatherOption customises an OpenWeatherFeed.
type OpenWeatherOption func(*OpenWeatherFeed)

// WithBaseURL points the feed at another API root, e.g. a test server.
func WithBaseURL(baseURL string) OpenWeatherOption {
	return func(p *OpenWeatherFeed) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithBackoff(b BackoffConfig) OpenWeatherOption {
	return func(p *OpenWeatherFeed) {
		p.httpCfg.Backoff = b
	}
}

func NewOpenWeatherFeed(client *http.Client, apiKey string, logger zerolog.Logger, opts ...OpenWeatherOption) (*OpenWeatherFeed, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger = logger.With().Str("feed", "openweathermap").Logger()

	p := &OpenWeatherFeed{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("openweather", logger),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger.Info().Str("key", MaskKey(apiKey)).Str("url", p.baseURL).Msg("OpenWeatherMap feed configured")
	return p, nil
}

func (p *OpenWeatherFeed) Name() string {
	return p.name
}

// Current fetches the current weather for location (<city[,countryISO2]>).
func (p *OpenWeatherFeed) Current(ctx context.Context, location string) (*weather.CurrentWeatherResponse, error) {
	var reply weather.CurrentWeatherResponse
	if err := p.get(ctx, "weather", location, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Forecast fetches the 5 day forecast in 3 hour slots.
func (p *OpenWeatherFeed) Forecast(ctx context.Context, location string) (*weather.ForecastWeatherResponse, error) {
	var reply weather.ForecastWeatherResponse
	if err := p.get(ctx, "forecast", location, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (p *OpenWeatherFeed) get(ctx context.Context, path, location string, out any) error {
	values := url.Values{}
	values.Set("q", location)
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lang", "en")
	u := fmt.Sprintf("%s/%s?%s", p.baseURL, path, values.Encode())

	start := time.Now()
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, out); err != nil {
		return fmt.Errorf("%s %s for %q: %w", p.name, path, location, err)
	}
	p.logger.Debug().Str("path", path).Str("location", location).Dur("took", time.Since(start)).Msg("feed reply")
	return nil
}

// MaskKey keeps the last four characters of key and masks the rest with X.
func MaskKey(key string) string {
	runes := []rune(key)
	if len(runes) <= 4 {
		return key
	}
	return strings.Repeat("X", len(runes)-4) + string(runes[len(runes)-4:])
}
