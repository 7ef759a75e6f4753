package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/personal-context-builder/internal/database"
	"github.com/jengzang/personal-context-builder/internal/models"
)

// PlaceRepository handles the user_places table
type PlaceRepository struct {
	db *sql.DB
}

// NewPlaceRepository creates a new place repository
func NewPlaceRepository(db *sql.DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// Insert stores places. Places without a user are rejected.
func (r *PlaceRepository) Insert(ctx context.Context, places []models.UserPlace) error {
	if len(places) == 0 {
		return nil
	}

	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO user_places (user_id, label, ts, tz, lat, lng, accuracy_m)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare place insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range places {
			if p.User == "" {
				return fmt.Errorf("place %q has no user", p.Label)
			}
			ts, tz := toUnixMs(p.Time)
			if _, err := stmt.ExecContext(ctx, p.User, p.Label, ts, tz, p.Lat, p.Lng, p.AccuracyM); err != nil {
				return fmt.Errorf("failed to insert place: %w", err)
			}
		}
		return nil
	})
}

// ListByUser returns the places of a user in insertion order
func (r *PlaceRepository) ListByUser(ctx context.Context, userID string) ([]models.UserPlace, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, label, ts, tz, lat, lng, accuracy_m
		FROM user_places
		WHERE user_id = ?
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	var places []models.UserPlace
	for rows.Next() {
		var (
			p  models.UserPlace
			ms int64
			tz string
		)
		if err := rows.Scan(&p.User, &p.Label, &ms, &tz, &p.Lat, &p.Lng, &p.AccuracyM); err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		p.Time = fromUnixMs(ms, tz)
		places = append(places, p)
	}
	return places, rows.Err()
}

// DeleteByUser removes every place of a user
func (r *PlaceRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_places WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete places: %w", err)
	}
	return result.RowsAffected()
}
