package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/personal-context-builder/internal/database"
	"github.com/jengzang/personal-context-builder/internal/models"
)

// LocationFilter narrows a location query. Zero times are unbounded.
type LocationFilter struct {
	UserID string
	From   time.Time
	To     time.Time
}

// LocationRepository handles the raw and realtime location tables
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Insert stores the locations of one user in a single transaction
func (r *LocationRepository) Insert(ctx context.Context, userID string, locations []models.LocationPoint) error {
	if len(locations) == 0 {
		return nil
	}

	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO locations (user_id, ts, tz, lat, lng, accuracy_m)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare location insert: %w", err)
		}
		defer stmt.Close()

		for _, loc := range locations {
			ts, tz := toUnixMs(loc.Time)
			if _, err := stmt.ExecContext(ctx, userID, ts, tz, loc.Lat, loc.Lng, loc.AccuracyM); err != nil {
				return fmt.Errorf("failed to insert location: %w", err)
			}
		}
		return nil
	})
}

// List returns the locations matching filter ordered by time
func (r *LocationRepository) List(ctx context.Context, filter LocationFilter) ([]models.LocationPoint, error) {
	query := `SELECT ts, tz, lat, lng, accuracy_m FROM locations`

	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "ts >= ?")
		args = append(args, filter.From.UnixMilli())
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "ts <= ?")
		args = append(args, filter.To.UnixMilli())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ts, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []models.LocationPoint
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locations: %w", err)
	}

	return locations, nil
}

// Users returns every user with at least one stored location
func (r *LocationRepository) Users(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM locations ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpsertRealtime replaces the realtime location of a user unless the stored
// one is more recent
func (r *LocationRepository) UpsertRealtime(ctx context.Context, userID string, loc models.LocationPoint) error {
	ts, tz := toUnixMs(loc.Time)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO realtime_locations (user_id, ts, tz, lat, lng, accuracy_m)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			ts = excluded.ts,
			tz = excluded.tz,
			lat = excluded.lat,
			lng = excluded.lng,
			accuracy_m = excluded.accuracy_m
		WHERE excluded.ts >= realtime_locations.ts
	`, userID, ts, tz, loc.Lat, loc.Lng, loc.AccuracyM)
	if err != nil {
		return fmt.Errorf("failed to upsert realtime location: %w", err)
	}
	return nil
}

// Realtime returns the realtime location of every user
func (r *LocationRepository) Realtime(ctx context.Context) (map[string]models.LocationPoint, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, ts, tz, lat, lng, accuracy_m FROM realtime_locations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query realtime locations: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]models.LocationPoint)
	for rows.Next() {
		var (
			user string
			ms   int64
			tz   string
			loc  models.LocationPoint
		)
		if err := rows.Scan(&user, &ms, &tz, &loc.Lat, &loc.Lng, &loc.AccuracyM); err != nil {
			return nil, fmt.Errorf("failed to scan realtime location: %w", err)
		}
		loc.Time = fromUnixMs(ms, tz)
		latest[user] = loc
	}
	return latest, rows.Err()
}

func scanLocation(rows *sql.Rows) (models.LocationPoint, error) {
	var (
		loc models.LocationPoint
		ms  int64
		tz  string
	)
	if err := rows.Scan(&ms, &tz, &loc.Lat, &loc.Lng, &loc.AccuracyM); err != nil {
		return loc, fmt.Errorf("failed to scan location: %w", err)
	}
	loc.Time = fromUnixMs(ms, tz)
	return loc, nil
}
