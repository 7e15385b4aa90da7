package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteDialect keeps payloads as JSON text and upserts by updating first,
// inserting when no row was touched.
type sqliteDialect struct{}

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

const (
	liteUpdateCurrentSQL  = `UPDATE current_weather SET update_time = ?, data = ? WHERE location = ?`
	liteInsertCurrentSQL  = `INSERT INTO current_weather (location, update_time, data) VALUES (?, ?, ?)`
	liteUpdateForecastSQL = `UPDATE forecast_weather SET data = ? WHERE location = ? AND update_time = ?`
	liteInsertForecastSQL = `INSERT INTO forecast_weather (location, update_time, data) VALUES (?, ?, ?)`
)

func (sqliteDialect) kind() Kind { return KindSQLite }

func (sqliteDialect) open(opts Options) (*sql.DB, error) {
	return sql.Open("sqlite", sqliteDSN(opts.URL))
}

// A single connection serialises writers on the database file.
func (sqliteDialect) poolSize(Options) int { return 1 }

func (sqliteDialect) txOptions() *sql.TxOptions { return nil }

func (sqliteDialect) rebind(query string) string { return query }

func (sqliteDialect) migrationDir() string { return "sqlite" }

func (sqliteDialect) timeArg(t time.Time) any { return toMillis(t) }

func (d sqliteDialect) upsertCurrent(ctx context.Context, tx *sql.Tx, key string, ts time.Time, payload []byte) error {
	var millis sql.NullInt64
	if !ts.IsZero() {
		millis = sql.NullInt64{Int64: toMillis(ts), Valid: true}
	}
	res, err := tx.ExecContext(ctx, liteUpdateCurrentSQL, millis, string(payload), key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	_, err = tx.ExecContext(ctx, liteInsertCurrentSQL, key, millis, string(payload))
	return err
}

func (d sqliteDialect) upsertForecast(ctx context.Context, tx *sql.Tx, key string, ts time.Time, payload []byte) error {
	millis := toMillis(ts)
	res, err := tx.ExecContext(ctx, liteUpdateForecastSQL, string(payload), key, millis)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	_, err = tx.ExecContext(ctx, liteInsertForecastSQL, key, millis, string(payload))
	return err
}

func sqliteDSN(path string) string {
	path = strings.TrimPrefix(path, "sqlite://")
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?" + sqlitePragmas
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}
