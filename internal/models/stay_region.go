package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/jengzang/personal-context-builder/internal/spatial"
)

// RegionState tells labelled regions from unlabelled ones.
type RegionState int

const (
	RegionUnlabelled RegionState = iota
	RegionLabelled
)

func (s RegionState) String() string {
	if s == RegionLabelled {
		return "labelled"
	}
	return "unlabelled"
}

// StayRegion is a cluster of stay points with a flat lat/lng bounding box.
// Bounds.Min is the bottom-right corner (smallest lat, smallest lng) and
// Bounds.Max the top-left corner (largest lat, largest lng).
type StayRegion struct {
	StayPoint
	Bounds     orb.Bound   `json:"-"`
	StayPoints []uuid.UUID `json:"stay_points,omitempty"`
}

// NewStayRegion builds a region from its time span, centroid and corners.
func NewStayRegion(tStart, tStop time.Time, centroid, topLeft, bottomRight GeoPoint) StayRegion {
	return StayRegion{
		StayPoint: StayPoint{
			GeoPoint: centroid,
			TStart:   tStart,
			TStop:    tStop,
		},
		Bounds: orb.Bound{
			Min: orb.Point{bottomRight.Lng, bottomRight.Lat},
			Max: orb.Point{topLeft.Lng, topLeft.Lat},
		},
	}
}

// TopLeft returns the corner holding the largest lat and lng.
func (r StayRegion) TopLeft() GeoPoint {
	return GeoPoint{Lat: r.Bounds.Max.Lat(), Lng: r.Bounds.Max.Lon()}
}

// BottomRight returns the corner holding the smallest lat and lng.
func (r StayRegion) BottomRight() GeoPoint {
	return GeoPoint{Lat: r.Bounds.Min.Lat(), Lng: r.Bounds.Min.Lon()}
}

// Contains is the inclusive box test bottomright <= p <= topleft on both axes.
func (r StayRegion) Contains(p GeoPoint) bool {
	return spatial.BoundContains(r.Bounds, p.Spatial())
}

// State reports RegionUnlabelled for a bare region.
func (r StayRegion) State() RegionState {
	return RegionUnlabelled
}

// LabelledStayRegion is a region with a ground-truth label attached.
// Geometry is copied verbatim from the source region.
type LabelledStayRegion struct {
	StayRegion
	Label string `json:"label"`
}

// NewLabelledStayRegion attaches label to a copy of region.
func NewLabelledStayRegion(region StayRegion, label string) LabelledStayRegion {
	return LabelledStayRegion{StayRegion: region, Label: label}
}

// State reports RegionLabelled.
func (r LabelledStayRegion) State() RegionState {
	return RegionLabelled
}
