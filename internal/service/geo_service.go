package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/jengzang/personal-context-builder/internal/analysis/regions"
	"github.com/jengzang/personal-context-builder/internal/analysis/staypoints"
	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/spatial"
)

// UserDistance is one entry of a closest users query
type UserDistance struct {
	UserID    string  `json:"user_id"`
	DistanceM float64 `json:"distance_m"`
}

// GeoService ingests locations and exposes the stateless spatial stages
type GeoService struct {
	locations LocationStore
	places    PlaceStore
}

// NewGeoService creates a new geo service
func NewGeoService(locations LocationStore, places PlaceStore) *GeoService {
	return &GeoService{locations: locations, places: places}
}

// AddLocations stores the locations of a user and refreshes its realtime
// location with the most recent one
func (s *GeoService) AddLocations(ctx context.Context, userID string, locations []models.LocationPoint) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if len(locations) == 0 {
		return fmt.Errorf("%w: no locations", ErrValidation)
	}

	latest := locations[0]
	for _, loc := range locations {
		if err := validateFix(loc.GeoPoint, loc.AccuracyM); err != nil {
			return err
		}
		if loc.Time.After(latest.Time) {
			latest = loc
		}
	}

	if err := s.locations.Insert(ctx, userID, locations); err != nil {
		return fmt.Errorf("failed to store locations: %w", err)
	}
	if err := s.locations.UpsertRealtime(ctx, userID, latest); err != nil {
		return fmt.Errorf("failed to refresh realtime location: %w", err)
	}

	log.Info().Str("user_id", userID).Int("count", len(locations)).Msg("locations stored")
	return nil
}

// AddPlaces stores user places
func (s *GeoService) AddPlaces(ctx context.Context, places []models.UserPlace) error {
	if len(places) == 0 {
		return fmt.Errorf("%w: no places", ErrValidation)
	}
	for _, p := range places {
		if p.User == "" {
			return fmt.Errorf("%w: place %q has no user", ErrValidation, p.Label)
		}
		if p.Label == "" {
			return fmt.Errorf("%w: place of %s has no label", ErrValidation, p.User)
		}
		if err := validateFix(p.GeoPoint, p.AccuracyM); err != nil {
			return err
		}
	}

	if err := s.places.Insert(ctx, places); err != nil {
		return fmt.Errorf("failed to store places: %w", err)
	}
	return nil
}

// StayPoints extracts the stay points of a location sequence
func (s *GeoService) StayPoints(locations []models.LocationPoint, p staypoints.Params) ([]models.StayPoint, error) {
	if p.TimeMin < 0 || p.TimeMax < p.TimeMin || p.DistanceMaxM < 0 {
		return nil, fmt.Errorf("%w: invalid stay point thresholds", ErrValidation)
	}
	for _, loc := range locations {
		if err := validateFix(loc.GeoPoint, loc.AccuracyM); err != nil {
			return nil, err
		}
	}
	return staypoints.Extract(locations, p), nil
}

// StayRegions clusters stay points, per calendar day when perDay is set
func (s *GeoService) StayRegions(points []models.StayPoint, p regions.Params, perDay bool) ([]models.StayRegion, error) {
	if p.DistanceThresholdM <= 0 {
		return nil, fmt.Errorf("%w: distance threshold must be positive", ErrValidation)
	}
	for _, sp := range points {
		if err := validateFix(sp.GeoPoint, sp.AccuracyM); err != nil {
			return nil, err
		}
	}
	if perDay {
		return regions.ClusterPerDay(points, p), nil
	}
	return regions.Cluster(points, p), nil
}

// Closest returns the n users whose realtime location is nearest to
// (lat, lng), nearest first
func (s *GeoService) Closest(ctx context.Context, lat, lng float64, n int) ([]UserDistance, error) {
	origin := models.GeoPoint{Lat: lat, Lng: lng}
	if err := validatePoint(origin); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive", ErrValidation)
	}

	latest, err := s.locations.Realtime(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load realtime locations: %w", err)
	}

	result := make([]UserDistance, 0, len(latest))
	for user, loc := range latest {
		result = append(result, UserDistance{UserID: user, DistanceM: origin.DistanceM(loc.GeoPoint)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DistanceM != result[j].DistanceM {
			return result[i].DistanceM < result[j].DistanceM
		}
		return result[i].UserID < result[j].UserID
	})

	if len(result) > n {
		result = result[:n]
	}
	return result, nil
}

// validateFix checks the coordinate and requires a finite accuracy between
// zero and half the Earth's circumference.
func validateFix(p models.GeoPoint, accuracyM float64) error {
	if err := validatePoint(p); err != nil {
		return err
	}
	if !(accuracyM >= 0 && accuracyM <= spatial.MaxDistanceMeters) {
		return fmt.Errorf("%w: accuracy %v m out of range", ErrValidation, accuracyM)
	}
	return nil
}

func validatePoint(p models.GeoPoint) error {
	if p.IsMissing() || p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: coordinate (%v, %v) out of range", ErrValidation, p.Lat, p.Lng)
	}
	return nil
}
