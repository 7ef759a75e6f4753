package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/personal-context-builder/internal/database"
	"github.com/jengzang/personal-context-builder/internal/models"
)

// RoutineRepository stores semantic routines one row per (weekday, slot, code)
type RoutineRepository struct {
	db *sql.DB
}

// NewRoutineRepository creates a new routine repository
func NewRoutineRepository(db *sql.DB) *RoutineRepository {
	return &RoutineRepository{db: db}
}

// Save replaces the stored routine of a user
func (r *RoutineRepository) Save(ctx context.Context, userID string, routine models.SemanticRoutine, computedAt time.Time) error {
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM semantic_routines WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear routine: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO semantic_routines (user_id, weekday, time_slot, code, score, computed_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare routine insert: %w", err)
		}
		defer stmt.Close()

		at := computedAt.UnixMilli()
		for weekday, slots := range routine {
			for slot, dist := range slots {
				for code, score := range dist {
					if _, err := stmt.ExecContext(ctx, userID, int(weekday), slot, code, score, at); err != nil {
						return fmt.Errorf("failed to insert routine slot: %w", err)
					}
				}
			}
		}
		return nil
	})
}

// Get returns the full routine of a user
func (r *RoutineRepository) Get(ctx context.Context, userID string) (models.SemanticRoutine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT weekday, time_slot, code, score
		FROM semantic_routines
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine: %w", err)
	}
	defer rows.Close()

	routine := make(models.SemanticRoutine)
	for rows.Next() {
		var (
			weekday int
			slot    string
			code    int
			score   float64
		)
		if err := rows.Scan(&weekday, &slot, &code, &score); err != nil {
			return nil, fmt.Errorf("failed to scan routine slot: %w", err)
		}
		wd := time.Weekday(weekday)
		if routine[wd] == nil {
			routine[wd] = make(map[string]map[int]float64)
		}
		if routine[wd][slot] == nil {
			routine[wd][slot] = make(map[int]float64)
		}
		routine[wd][slot][code] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routine: %w", err)
	}

	if len(routine) == 0 {
		return nil, fmt.Errorf("routine of %s: %w", userID, ErrNotFound)
	}
	return routine, nil
}

// Slot returns the stored distribution of one weekday and slot
func (r *RoutineRepository) Slot(ctx context.Context, userID string, weekday time.Weekday, slot string) (map[int]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, score
		FROM semantic_routines
		WHERE user_id = ? AND weekday = ? AND time_slot = ?
	`, userID, int(weekday), slot)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine slot: %w", err)
	}
	defer rows.Close()

	dist := make(map[int]float64)
	for rows.Next() {
		var (
			code  int
			score float64
		)
		if err := rows.Scan(&code, &score); err != nil {
			return nil, fmt.Errorf("failed to scan routine slot: %w", err)
		}
		dist[code] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routine slot: %w", err)
	}

	if len(dist) == 0 {
		return nil, fmt.Errorf("routine slot %s %s %s: %w", userID, weekday, slot, ErrNotFound)
	}
	return dist, nil
}
