package weather

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRefreshTimeout is how long a stored record is served before the
// feed is asked again.
const DefaultRefreshTimeout = 60 * time.Minute

// Service serves weather from storage while it is fresh and refetches from
// the feed once it is older than the refresh timeout. There is no per
// location lock: concurrent misses for one location both fetch and write,
// and the storage upsert makes the end state converge.
type Service struct {
	feed      Feed
	weather   WeatherRepo
	locations LocationRepo

	refreshTimeout time.Duration
	clock          func() time.Time
	logger         zerolog.Logger
	metrics        Metrics
}

// Option customises a Service.
type Option func(*Service)

func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService creates a new Service.
func NewService(feed Feed, weather WeatherRepo, locations LocationRepo, opts ...Option) *Service {
	s := &Service{
		feed:           feed,
		weather:        weather,
		locations:      locations,
		refreshTimeout: DefaultRefreshTimeout,
		clock:          func() time.Time { return time.Now().UTC() },
		logger:         zerolog.Nop(),
		metrics:        noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshTimeout returns the staleness window.
func (s *Service) RefreshTimeout() time.Duration {
	return s.refreshTimeout
}

// Current returns the current weather for location, or nil when neither the
// storage nor the feed has usable data. Only storage failures are errors.
func (s *Service) Current(ctx context.Context, location string) (*CurrentWeather, error) {
	entry, err := s.weather.GetCurrent(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("get current weather for %s: %w", location, err)
	}
	if entry != nil && s.fresh(entry.Timestamp) {
		s.logger.Debug().Str("location", location).Time("timestamp", entry.Timestamp).Msg("retrieving cached data for current")
		s.metrics.CacheLookup(KindCurrent, true)
		return entry, nil
	}
	s.metrics.CacheLookup(KindCurrent, false)

	reply, err := s.feed.Current(ctx, location)
	if err != nil {
		s.logger.Warn().Err(err).Str("location", location).Msg("current weather feed failed")
		s.metrics.FeedFetch(KindCurrent, false)
		return nil, nil
	}
	fresh := ConvertCurrent(location, reply, s.clock())
	if fresh == nil {
		s.logger.Info().Str("location", location).Msg("no usable current weather in feed reply")
		s.metrics.FeedFetch(KindCurrent, false)
		return nil, nil
	}
	s.metrics.FeedFetch(KindCurrent, true)

	s.logger.Info().Str("location", location).Msg("retrieving and store fresh data for current")
	// Admitted writes finish even if the caller goes away.
	writeCtx := context.WithoutCancel(ctx)
	if err := s.weather.StoreCurrent(writeCtx, *fresh); err != nil {
		return nil, fmt.Errorf("store current weather for %s: %w", location, err)
	}
	// Feeds the suggestions and the geo lookup.
	position := GeoPosition{Latitude: fresh.Coord.Lat, Longitude: fresh.Coord.Lon}
	if err := s.locations.Store(writeCtx, location, position); err != nil {
		return nil, fmt.Errorf("store position for %s: %w", location, err)
	}
	return fresh, nil
}

// Forecast returns up to DefaultForecastLimit slots, newest first. The stored
// batch is stale as soon as its oldest slot leaves the refresh window.
func (s *Service) Forecast(ctx context.Context, location string) ([]ForecastWeather, error) {
	entries, err := s.weather.ListForecast(ctx, location, DefaultForecastLimit)
	if err != nil {
		return nil, fmt.Errorf("list forecast for %s: %w", location, err)
	}
	if oldest, ok := minTimestamp(entries); ok && s.fresh(oldest) {
		s.logger.Debug().Str("location", location).Time("oldest", oldest).Msg("retrieving cached data for forecast")
		s.metrics.CacheLookup(KindForecast, true)
		return entries, nil
	}
	s.metrics.CacheLookup(KindForecast, false)

	reply, err := s.feed.Forecast(ctx, location)
	if err != nil {
		s.logger.Warn().Err(err).Str("location", location).Msg("forecast feed failed")
		s.metrics.FeedFetch(KindForecast, false)
		return []ForecastWeather{}, nil
	}
	fresh := ConvertForecast(location, reply)
	s.metrics.FeedFetch(KindForecast, len(fresh) > 0)
	if len(fresh) == 0 {
		s.logger.Info().Str("location", location).Msg("no forecast slots in feed reply")
		return fresh, nil
	}

	s.logger.Info().Str("location", location).Int("slots", len(fresh)).Msg("retrieving and store fresh data for forecast")
	if err := s.weather.StoreForecast(context.WithoutCancel(ctx), fresh); err != nil {
		return nil, fmt.Errorf("store forecast for %s: %w", location, err)
	}
	slices.SortStableFunc(fresh, func(a, b ForecastWeather) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return fresh, nil
}

func (s *Service) fresh(ts time.Time) bool {
	return s.clock().Sub(ts) < s.refreshTimeout
}

func minTimestamp(entries []ForecastWeather) (time.Time, bool) {
	if len(entries) == 0 {
		return time.Time{}, false
	}
	oldest := entries[0].Timestamp
	for _, e := range entries[1:] {
		if e.Timestamp.Before(oldest) {
			oldest = e.Timestamp
		}
	}
	return oldest, true
}
