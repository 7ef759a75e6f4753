package models

import (
	"math"
	"time"

	"github.com/jengzang/personal-context-builder/internal/spatial"
)

// GeoPoint is a WGS84 coordinate in decimal degrees.
// Valid ranges (lat in [-90,90], lng in [-180,180]) are a precondition.
type GeoPoint struct {
	Lat float64 `json:"lat" db:"lat"`
	Lng float64 `json:"lng" db:"lng"`
}

// DistanceM returns the haversine distance to other in meters.
func (p GeoPoint) DistanceM(other GeoPoint) float64 {
	return spatial.HaversineDistance(p.Lat, p.Lng, other.Lat, other.Lng)
}

// IsMissing reports whether p is the NaN placeholder of an empty time slot.
func (p GeoPoint) IsMissing() bool {
	return math.IsNaN(p.Lat) || math.IsNaN(p.Lng)
}

// Spatial converts p to the spatial package point type.
func (p GeoPoint) Spatial() spatial.Point {
	return spatial.Point{Lat: p.Lat, Lon: p.Lng}
}

// LocationPoint is a single timestamped GPS fix.
type LocationPoint struct {
	GeoPoint
	Time      time.Time `json:"pts_t" db:"ts"`
	AccuracyM float64   `json:"accuracy_m" db:"accuracy_m"`
}

// NewLocationPoint builds a location fix.
func NewLocationPoint(t time.Time, lat, lng, accuracyM float64) LocationPoint {
	return LocationPoint{
		GeoPoint:  GeoPoint{Lat: lat, Lng: lng},
		Time:      t,
		AccuracyM: accuracyM,
	}
}

// MissingLocation is the placeholder used for a time slot without data.
// It keeps the slot time so days stay aligned.
func MissingLocation(t time.Time) LocationPoint {
	return LocationPoint{
		GeoPoint:  GeoPoint{Lat: math.NaN(), Lng: math.NaN()},
		Time:      t,
		AccuracyM: math.NaN(),
	}
}

// UserPlace is a ground-truth label reported by a user at a location.
type UserPlace struct {
	LocationPoint
	Label string `json:"label" db:"label"`
	User  string `json:"user,omitempty" db:"user_id"`
}

// NewUserPlace builds a labelled place.
func NewUserPlace(t time.Time, lat, lng float64, label, user string) UserPlace {
	return UserPlace{
		LocationPoint: NewLocationPoint(t, lat, lng, 0),
		Label:         label,
		User:          user,
	}
}

// Day is one calendar day of locations resampled onto a fixed slot grid.
// Every day produced with the same grid has the same length.
type Day []LocationPoint
