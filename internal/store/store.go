// Package store persists cached weather and known locations. One *DB serves
// every record class; the SQL flavour is picked once when it is opened.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/i474232898/weather-service/internal/store/migrations"
)

var (
	// ErrUnsupportedBackend is returned for an unknown backend kind and by
	// every operation of a store that has no dialect.
	ErrUnsupportedBackend = errors.New("unsupported storage backend")
	// ErrNotConfigured is returned by operations on a nil or unopened store.
	ErrNotConfigured = fmt.Errorf("%w: store not opened", ErrUnsupportedBackend)
)

// Kind names a storage backend.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
	KindMemory   Kind = "memory"
)

// DefaultMaxConns bounds the pool and the number of concurrent transactions.
const DefaultMaxConns = 3

// ParseKind maps a configured backend name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPostgres, KindSQLite, KindMemory:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, s)
	}
}

// Options configures Open.
type Options struct {
	Kind Kind
	// URL is a postgres connection URL or a sqlite file path.
	URL      string
	User     string
	Password string
	MaxConns int
}

// DB is an opened SQL backend.
type DB struct {
	sql     *sql.DB
	dialect dialect
	sem     *semaphore.Weighted
	logger  zerolog.Logger
}

// Open connects to the backend named by opts.Kind and applies its migrations.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*DB, error) {
	d, err := newDialect(opts.Kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("open %s store: empty url", d.kind())
	}

	sqlDB, err := d.open(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d.kind(), err)
	}
	size := d.poolSize(opts)
	sqlDB.SetMaxOpenConns(size)
	sqlDB.SetMaxIdleConns(size)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s store: %w", d.kind(), err)
	}
	if err := applyMigrations(ctx, sqlDB, d, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate %s store: %w", d.kind(), err)
	}

	logger = logger.With().Str("component", "store").Str("backend", string(d.kind())).Logger()
	logger.Info().Int("pool", size).Msg("store opened")
	return &DB{
		sql:     sqlDB,
		dialect: d,
		sem:     semaphore.NewWeighted(int64(size)),
		logger:  logger,
	}, nil
}

// Kind reports the backend in use.
func (db *DB) Kind() Kind {
	if db == nil || db.dialect == nil {
		return ""
	}
	return db.dialect.kind()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.sql == nil {
		return ErrNotConfigured
	}
	return db.sql.PingContext(ctx)
}

// Close closes the underlying pool.
func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	return db.sql.Close()
}

// transact runs fn in one transaction while holding an I/O slot. The
// transaction is rolled back unless fn returns nil and the commit succeeds.
func (db *DB) transact(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if db == nil || db.sql == nil {
		return ErrNotConfigured
	}
	if db.dialect == nil || db.sem == nil {
		return ErrUnsupportedBackend
	}

	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire io slot: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.sql.BeginTx(ctx, db.dialect.txOptions())
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// canonicalKey is the lowercase storage key of a location.
func canonicalKey(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}
