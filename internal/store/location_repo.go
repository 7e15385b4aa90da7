package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/i474232898/weather-service/internal/weather"
)

// LocationRepo stores the coordinates of every location served so far.
type LocationRepo struct {
	db *DB
}

var _ weather.LocationRepo = (*LocationRepo)(nil)

func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db}
}

// Store inserts or updates the position under the lowercased location.
func (r *LocationRepo) Store(ctx context.Context, location string, position weather.GeoPosition) error {
	key := canonicalKey(location)
	err := r.db.transact(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.db.dialect.rebind(upsertLocationSQL), key, position.Latitude, position.Longitude)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	return nil
}

// GetPosition returns nil when the location was never stored.
func (r *LocationRepo) GetPosition(ctx context.Context, location string) (*weather.GeoPosition, error) {
	key := canonicalKey(location)
	var position weather.GeoPosition
	err := r.db.transact(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, r.db.dialect.rebind(selectPositionSQL), key).
			Scan(&position.Latitude, &position.Longitude)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select location: %w", err)
	}
	return &position, nil
}

// SuggestLocations returns stored keys containing snippet, case-insensitively.
// An empty snippet matches every key.
func (r *LocationRepo) SuggestLocations(ctx context.Context, snippet string) ([]string, error) {
	pattern := likePattern(canonicalKey(snippet))
	var suggestions []string
	err := r.db.transact(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, r.db.dialect.rebind(suggestSQL), pattern)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var location string
			if err := rows.Scan(&location); err != nil {
				return err
			}
			suggestions = append(suggestions, location)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("suggest locations: %w", err)
	}
	return suggestions, nil
}
