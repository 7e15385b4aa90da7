package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/i474232898/weather-service/internal/weather"
)

// WeatherRepo persists current weather and forecast slots on a *DB.
type WeatherRepo struct {
	db *DB
}

var _ weather.WeatherRepo = (*WeatherRepo)(nil)

func NewWeatherRepo(db *DB) *WeatherRepo {
	return &WeatherRepo{db: db}
}

// GetCurrent returns nil when nothing usable is stored for location.
func (r *WeatherRepo) GetCurrent(ctx context.Context, location string) (*weather.CurrentWeather, error) {
	key := canonicalKey(location)
	var payload []byte
	err := r.db.transact(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, r.db.dialect.rebind(selectCurrentSQL), key).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select current weather: %w", err)
	}

	var current weather.CurrentWeather
	if err := json.Unmarshal(payload, &current); err != nil {
		r.db.logger.Warn().Err(err).Str("location", key).Str("kind", weather.KindCurrent).Msg("skipping undecodable row")
		return nil, nil
	}
	return &current, nil
}

// StoreCurrent overwrites the single current record of the location.
func (r *WeatherRepo) StoreCurrent(ctx context.Context, current weather.CurrentWeather) error {
	current.Location = canonicalKey(current.Location)
	current.Timestamp = current.Timestamp.UTC()
	payload, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode current weather: %w", err)
	}
	err = r.db.transact(ctx, func(tx *sql.Tx) error {
		return r.db.dialect.upsertCurrent(ctx, tx, current.Location, current.Timestamp, payload)
	})
	if err != nil {
		return fmt.Errorf("upsert current weather: %w", err)
	}
	return nil
}

// ListForecast returns at most limit slots, newest first. A limit of zero or
// less means weather.DefaultForecastLimit.
func (r *WeatherRepo) ListForecast(ctx context.Context, location string, limit int) ([]weather.ForecastWeather, error) {
	if limit <= 0 {
		limit = weather.DefaultForecastLimit
	}
	key := canonicalKey(location)

	var payloads [][]byte
	err := r.db.transact(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, r.db.dialect.rebind(selectForecastSQL), key, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var payload []byte
			if err := rows.Scan(&payload); err != nil {
				return err
			}
			payloads = append(payloads, payload)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select forecast: %w", err)
	}

	forecast := make([]weather.ForecastWeather, 0, len(payloads))
	for _, payload := range payloads {
		var slot weather.ForecastWeather
		if err := json.Unmarshal(payload, &slot); err != nil {
			r.db.logger.Warn().Err(err).Str("location", key).Str("kind", weather.KindForecast).Msg("skipping undecodable row")
			continue
		}
		forecast = append(forecast, slot)
	}
	return forecast, nil
}

// StoreForecast upserts every slot on (location, timestamp) in one transaction.
func (r *WeatherRepo) StoreForecast(ctx context.Context, forecast []weather.ForecastWeather) error {
	if len(forecast) == 0 {
		return nil
	}
	type encoded struct {
		key     string
		ts      time.Time
		payload []byte
	}
	batch := make([]encoded, 0, len(forecast))
	for _, slot := range forecast {
		slot.Location = canonicalKey(slot.Location)
		slot.Timestamp = slot.Timestamp.UTC()
		payload, err := json.Marshal(slot)
		if err != nil {
			return fmt.Errorf("encode forecast slot: %w", err)
		}
		batch = append(batch, encoded{key: slot.Location, ts: slot.Timestamp, payload: payload})
	}

	err := r.db.transact(ctx, func(tx *sql.Tx) error {
		for _, e := range batch {
			if err := r.db.dialect.upsertForecast(ctx, tx, e.key, e.ts, e.payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert forecast: %w", err)
	}
	return nil
}
