package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// postgresDialect keeps payloads in JSONB columns and upserts with
// ON CONFLICT DO UPDATE.
type postgresDialect struct{}

const (
	pgUpsertCurrentSQL = `INSERT INTO current_weather (location, update_time, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (location) DO UPDATE SET update_time = excluded.update_time, data = excluded.data`
	pgUpsertForecastSQL = `INSERT INTO forecast_weather (location, update_time, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (location, update_time) DO UPDATE SET data = excluded.data`
)

func (postgresDialect) kind() Kind { return KindPostgres }

func (postgresDialect) open(opts Options) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(opts.URL)
	if err != nil {
		return nil, err
	}
	if opts.User != "" {
		cfg.User = opts.User
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	return stdlib.OpenDB(*cfg), nil
}

func (postgresDialect) poolSize(opts Options) int {
	if opts.MaxConns > 0 {
		return opts.MaxConns
	}
	return DefaultMaxConns
}

// Read committed is enough: every write is a single upsert per key.
func (postgresDialect) txOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
}

func (postgresDialect) rebind(query string) string { return numberedPlaceholders(query) }

func (postgresDialect) migrationDir() string { return "postgres" }

func (postgresDialect) timeArg(t time.Time) any { return t.UTC() }

func (d postgresDialect) upsertCurrent(ctx context.Context, tx *sql.Tx, key string, ts time.Time, payload []byte) error {
	_, err := tx.ExecContext(ctx, pgUpsertCurrentSQL, key, nullTime(ts), string(payload))
	return err
}

func (d postgresDialect) upsertForecast(ctx context.Context, tx *sql.Tx, key string, ts time.Time, payload []byte) error {
	_, err := tx.ExecContext(ctx, pgUpsertForecastSQL, key, d.timeArg(ts), string(payload))
	return err
}

// nullTime stores a zero observation time as NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
