package weather

import (
	"context"
)

// Feed abstracts the upstream weather source. A nil reply with a nil error
// means the feed had nothing for the location.
type Feed interface {
	Current(ctx context.Context, location string) (*CurrentWeatherResponse, error)
	Forecast(ctx context.Context, location string) (*ForecastWeatherResponse, error)
}

// WeatherRepo is the contract both SQL dialects and the in-memory store satisfy.
// Location is <city[,countryISO2]>, compared case-insensitively.
type WeatherRepo interface {
	GetCurrent(ctx context.Context, location string) (*CurrentWeather, error)
	StoreCurrent(ctx context.Context, weather CurrentWeather) error
	// ListForecast returns at most limit entries, newest slot first.
	ListForecast(ctx context.Context, location string, limit int) ([]ForecastWeather, error)
	StoreForecast(ctx context.Context, forecast []ForecastWeather) error
}

// LocationRepo keeps the coordinates of every location seen so far and
// serves autocomplete suggestions.
type LocationRepo interface {
	Store(ctx context.Context, location string, position GeoPosition) error
	GetPosition(ctx context.Context, location string) (*GeoPosition, error)
	SuggestLocations(ctx context.Context, snippet string) ([]string, error)
}

// Metrics receives cache and feed outcomes.
type Metrics interface {
	CacheLookup(kind string, hit bool)
	FeedFetch(kind string, ok bool)
}

type noopMetrics struct{}

func (noopMetrics) CacheLookup(string, bool) {}
func (noopMetrics) FeedFetch(string, bool)   {}
