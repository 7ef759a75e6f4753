// Package service holds the business logic between the HTTP handlers and
// the repositories. Services depend on the store interfaces below, not on
// SQL.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/repository"
)

// ErrValidation marks input rejected before reaching a store
var ErrValidation = errors.New("validation error")

// LocationStore persists raw and realtime locations
type LocationStore interface {
	Insert(ctx context.Context, userID string, locations []models.LocationPoint) error
	List(ctx context.Context, filter repository.LocationFilter) ([]models.LocationPoint, error)
	Users(ctx context.Context) ([]string, error)
	UpsertRealtime(ctx context.Context, userID string, loc models.LocationPoint) error
	Realtime(ctx context.Context) (map[string]models.LocationPoint, error)
}

// PlaceStore persists user places
type PlaceStore interface {
	Insert(ctx context.Context, places []models.UserPlace) error
	ListByUser(ctx context.Context, userID string) ([]models.UserPlace, error)
}

// ProfileStore persists profile vectors
type ProfileStore interface {
	Save(ctx context.Context, p *models.Profile) error
	Get(ctx context.Context, model, userID string) (*models.Profile, error)
	ListByModel(ctx context.Context, model string) ([]*models.Profile, error)
}

// RoutineStore persists semantic routines
type RoutineStore interface {
	Save(ctx context.Context, userID string, routine models.SemanticRoutine, computedAt time.Time) error
	Get(ctx context.Context, userID string) (models.SemanticRoutine, error)
	Slot(ctx context.Context, userID string, weekday time.Weekday, slot string) (map[int]float64, error)
}

// BatchStore records batch runs
type BatchStore interface {
	Start(ctx context.Context, runID uuid.UUID, startedAt time.Time) error
	Finish(ctx context.Context, runID uuid.UUID, succeeded, failed int, finishedAt time.Time) error
	Get(ctx context.Context, runID uuid.UUID) (*models.BatchRun, error)
}

var (
	_ LocationStore = (*repository.LocationRepository)(nil)
	_ PlaceStore    = (*repository.PlaceRepository)(nil)
	_ ProfileStore  = (*repository.ProfileRepository)(nil)
	_ RoutineStore  = (*repository.RoutineRepository)(nil)
	_ BatchStore    = (*repository.BatchRepository)(nil)
)
