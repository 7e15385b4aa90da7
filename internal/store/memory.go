package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/i474232898/weather-service/internal/weather"
)

// forecastHistory holds the forecast slots of one location keyed by slot
// time in unix nanoseconds.
type forecastHistory struct {
	slots map[int64]weather.ForecastWeather
}

// MemoryStore is a concurrency-safe in-memory implementation of both the
// weather and the location store. It follows the same overwrite policy as
// the SQL backends.
type MemoryStore struct {
	mu sync.RWMutex

	// key: canonical location key
	current   map[string]weather.CurrentWeather
	forecast  map[string]*forecastHistory
	locations map[string]weather.GeoPosition
}

var (
	_ weather.WeatherRepo  = (*MemoryStore)(nil)
	_ weather.LocationRepo = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		current:   make(map[string]weather.CurrentWeather),
		forecast:  make(map[string]*forecastHistory),
		locations: make(map[string]weather.GeoPosition),
	}
}

func (s *MemoryStore) GetCurrent(_ context.Context, location string) (*weather.CurrentWeather, error) {
	key := canonicalKey(location)

	s.mu.RLock()
	defer s.mu.RUnlock()

	current, ok := s.current[key]
	if !ok {
		return nil, nil
	}
	return &current, nil
}

func (s *MemoryStore) StoreCurrent(_ context.Context, current weather.CurrentWeather) error {
	current.Location = canonicalKey(current.Location)
	current.Timestamp = current.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current[current.Location] = current
	return nil
}

// ListForecast returns at most limit slots for location, newest first.
func (s *MemoryStore) ListForecast(_ context.Context, location string, limit int) ([]weather.ForecastWeather, error) {
	if limit <= 0 {
		limit = weather.DefaultForecastLimit
	}
	key := canonicalKey(location)

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.forecast[key]
	if !ok {
		return []weather.ForecastWeather{}, nil
	}
	result := make([]weather.ForecastWeather, 0, len(history.slots))
	for _, slot := range history.slots {
		result = append(result, slot)
	}
	slices.SortFunc(result, func(a, b weather.ForecastWeather) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) StoreForecast(_ context.Context, forecast []weather.ForecastWeather) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range forecast {
		slot.Location = canonicalKey(slot.Location)
		slot.Timestamp = slot.Timestamp.UTC()

		history, ok := s.forecast[slot.Location]
		if !ok {
			history = &forecastHistory{slots: make(map[int64]weather.ForecastWeather)}
			s.forecast[slot.Location] = history
		}
		history.slots[slot.Timestamp.UnixNano()] = slot
	}
	return nil
}

func (s *MemoryStore) Store(_ context.Context, location string, position weather.GeoPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locations[canonicalKey(location)] = position
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, location string) (*weather.GeoPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.locations[canonicalKey(location)]
	if !ok {
		return nil, nil
	}
	return &position, nil
}

// SuggestLocations returns matching keys in lexical order.
func (s *MemoryStore) SuggestLocations(_ context.Context, snippet string) ([]string, error) {
	snippet = canonicalKey(snippet)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var suggestions []string
	for key := range s.locations {
		if strings.Contains(key, snippet) {
			suggestions = append(suggestions, key)
		}
	}
	slices.SortFunc(suggestions, cmp.Compare[string])
	return suggestions, nil
}
