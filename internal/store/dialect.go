package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dialect hides how a backend stores documents and resolves key conflicts.
// Both implementations overwrite on conflict.
type dialect interface {
	kind() Kind
	open(opts Options) (*sql.DB, error)
	poolSize(opts Options) int
	txOptions() *sql.TxOptions
	// rebind rewrites ? placeholders to the backend's syntax.
	rebind(query string) string
	migrationDir() string
	timeArg(t time.Time) any
	upsertCurrent(ctx context.Context, tx *sql.Tx, key string, ts time.Time, payload []byte) error
	upsertForecast(ctx context.Context, tx *sql.Tx, key string, ts time.Time, payload []byte) error
}

func newDialect(kind Kind) (dialect, error) {
	switch kind {
	case KindPostgres:
		return postgresDialect{}, nil
	case KindSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, kind)
	}
}

// Shared statements, written with ? placeholders.
const (
	selectCurrentSQL  = `SELECT data FROM current_weather WHERE location = ?`
	selectForecastSQL = `SELECT data FROM forecast_weather WHERE location = ? ORDER BY update_time DESC LIMIT ?`

	upsertLocationSQL = `INSERT INTO location (location, latitude, longitude) VALUES (?, ?, ?)
ON CONFLICT (location) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude`
	selectPositionSQL = `SELECT latitude, longitude FROM location WHERE location = ?`
	suggestSQL        = `SELECT DISTINCT location FROM location WHERE location LIKE ? ESCAPE '\' ORDER BY location`
)

// numberedPlaceholders turns ? into $1, $2, ... outside quoted literals.
func numberedPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// likePattern builds a substring pattern matching snippet literally.
func likePattern(snippet string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(snippet) + "%"
}
