package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/personal-context-builder/internal/models"
)

// ProfileRepository stores one profile vector per (model, user)
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Save inserts or replaces a profile. The routine is not stored here.
func (r *ProfileRepository) Save(ctx context.Context, p *models.Profile) error {
	vector := p.Vector
	if vector == nil {
		vector = []float64{}
	}
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to serialize vector: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (model, user_id, vector_json, computed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(model, user_id) DO UPDATE SET
			vector_json = excluded.vector_json,
			computed_at = excluded.computed_at
	`, p.Model, p.UserID, string(data), p.ComputedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Get returns the profile of a user for a model
func (r *ProfileRepository) Get(ctx context.Context, model, userID string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT model, user_id, vector_json, computed_at
		FROM profiles
		WHERE model = ? AND user_id = ?
	`, model, userID)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s/%s: %w", model, userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByModel returns every stored profile of a model ordered by user
func (r *ProfileRepository) ListByModel(ctx context.Context, model string) ([]*models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT model, user_id, vector_json, computed_at
		FROM profiles
		WHERE model = ?
		ORDER BY user_id
	`, model)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Delete removes the profile of a user for a model
func (r *ProfileRepository) Delete(ctx context.Context, model, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE model = ? AND user_id = ?`, model, userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s/%s: %w", model, userID, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*models.Profile, error) {
	var (
		p    models.Profile
		data string
		ms   int64
	)
	if err := s.Scan(&p.Model, &p.UserID, &data, &ms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &p.Vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector of %s/%s: %w", p.Model, p.UserID, err)
	}
	p.ComputedAt = time.UnixMilli(ms).UTC()
	return &p, nil
}
