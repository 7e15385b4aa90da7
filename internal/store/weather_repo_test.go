package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-service/internal/weather"
)

// runWeatherRepoSuite exercises the weather contract against any backend.
func runWeatherRepoSuite(t *testing.T, newRepo func(t *testing.T) weather.WeatherRepo) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		repo := newRepo(t)
		current, err := repo.GetCurrent(ctx, "zurich,ch")
		require.NoError(t, err)
		assert.Nil(t, current)

		forecast, err := repo.ListForecast(ctx, "zurich,ch", 40)
		require.NoError(t, err)
		assert.Empty(t, forecast)
	})

	t.Run("current is overwritten and case insensitive", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.StoreCurrent(ctx, currentRecord("Zurich,CH", baseTime, 11.5)))
		require.NoError(t, repo.StoreCurrent(ctx, currentRecord("zurich,ch", baseTime.Add(time.Hour), 13)))

		got, err := repo.GetCurrent(ctx, "ZURICH,ch")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "zurich,ch", got.Location)
		assert.True(t, got.Timestamp.Equal(baseTime.Add(time.Hour)))
		assert.Equal(t, 13.0, got.Info.Temp)
		assert.Equal(t, "icon-weather-022", got.BootstrapIcon)
		assert.Equal(t, 803, got.Current.ID)
		assert.Equal(t, weather.Coord{Lon: 8.55, Lat: 47.37}, got.Coord)
	})

	t.Run("forecast replay is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		batch := forecastBatch("zurich,ch", baseTime, 40)
		require.NoError(t, repo.StoreForecast(ctx, batch))
		require.NoError(t, repo.StoreForecast(ctx, batch))

		got, err := repo.ListForecast(ctx, "zurich,ch", 100)
		require.NoError(t, err)
		assert.Len(t, got, 40)
	})

	t.Run("same timestamp for another location is a new slot", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.StoreForecast(ctx, forecastBatch("zurich,ch", baseTime, 1)))
		require.NoError(t, repo.StoreForecast(ctx, forecastBatch("berne,ch", baseTime, 1)))

		zurich, err := repo.ListForecast(ctx, "zurich,ch", 40)
		require.NoError(t, err)
		berne, err := repo.ListForecast(ctx, "Berne,CH", 40)
		require.NoError(t, err)
		assert.Len(t, zurich, 1)
		assert.Len(t, berne, 1)
	})

	t.Run("forecast slot is overwritten", func(t *testing.T) {
		repo := newRepo(t)
		first := forecastBatch("zurich,ch", baseTime, 1)
		require.NoError(t, repo.StoreForecast(ctx, first))
		second := forecastBatch("zurich,ch", baseTime, 1)
		second[0].Forecast.Main.Temp = 21
		require.NoError(t, repo.StoreForecast(ctx, second))

		got, err := repo.ListForecast(ctx, "zurich,ch", 40)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 21.0, got[0].Forecast.Main.Temp)
	})

	t.Run("forecast ordered newest first and limited", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.StoreForecast(ctx, forecastBatch("zurich,ch", baseTime, 10)))

		got, err := repo.ListForecast(ctx, "zurich,ch", 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, got[0].Timestamp.Equal(baseTime.Add(27*time.Hour)))
		assert.True(t, got[1].Timestamp.Equal(baseTime.Add(24*time.Hour)))
		assert.True(t, got[2].Timestamp.Equal(baseTime.Add(21*time.Hour)))

		all, err := repo.ListForecast(ctx, "zurich,ch", 0)
		require.NoError(t, err)
		assert.Len(t, all, 10)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.StoreForecast(ctx, nil))
	})
}

func TestSQLiteWeatherRepo(t *testing.T) {
	runWeatherRepoSuite(t, func(t *testing.T) weather.WeatherRepo {
		return NewWeatherRepo(openTestSQLite(t))
	})
}

func TestMemoryWeatherRepo(t *testing.T) {
	runWeatherRepoSuite(t, func(*testing.T) weather.WeatherRepo {
		return NewMemoryStore()
	})
}

func TestSQLiteRowCounts(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	repo := NewWeatherRepo(db)

	require.NoError(t, repo.StoreCurrent(ctx, currentRecord("zurich,ch", baseTime, 10)))
	require.NoError(t, repo.StoreCurrent(ctx, currentRecord("Zurich,CH", baseTime.Add(time.Hour), 12)))
	assert.Equal(t, 1, countRows(t, db, "current_weather"))

	batch := forecastBatch("zurich,ch", baseTime, 40)
	require.NoError(t, repo.StoreForecast(ctx, batch))
	require.NoError(t, repo.StoreForecast(ctx, batch))
	assert.Equal(t, 40, countRows(t, db, "forecast_weather"))
}

func TestSQLiteSkipsUndecodableRows(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	repo := NewWeatherRepo(db)

	require.NoError(t, repo.StoreForecast(ctx, forecastBatch("zurich,ch", baseTime, 2)))
	_, err := db.sql.Exec(`INSERT INTO forecast_weather (location, update_time, data) VALUES (?, ?, ?)`,
		"zurich,ch", toMillis(baseTime.Add(24*time.Hour)), "{not json")
	require.NoError(t, err)
	_, err = db.sql.Exec(`INSERT INTO current_weather (location, update_time, data) VALUES (?, ?, ?)`,
		"berne,ch", toMillis(baseTime), "[]garbage")
	require.NoError(t, err)

	forecast, err := repo.ListForecast(ctx, "zurich,ch", 40)
	require.NoError(t, err)
	assert.Len(t, forecast, 2)

	current, err := repo.GetCurrent(ctx, "berne,ch")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestSQLiteStoresZeroTimestampAsNull(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	require.NoError(t, NewWeatherRepo(db).StoreCurrent(ctx, currentRecord("zurich,ch", time.Time{}, 10)))

	var nulls int
	require.NoError(t, db.sql.QueryRow(`SELECT COUNT(*) FROM current_weather WHERE update_time IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}
