// Package staypoints segments a location stream into stay points.
package staypoints

import (
	"sort"
	"time"

	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/spatial"
	"github.com/jengzang/personal-context-builder/internal/stats"
)

// Params are the extraction thresholds.
type Params struct {
	// TimeMin is the gap two consecutive fixes must exceed.
	TimeMin time.Duration `yaml:"time_min" json:"time_min"`
	// TimeMax bounds the span of a run, measured from its first fix.
	TimeMax time.Duration `yaml:"time_max" json:"time_max"`
	// DistanceMaxM bounds the distance between consecutive fixes.
	DistanceMaxM float64 `yaml:"distance_max_m" json:"distance_max_m"`
}

// DefaultParams returns 5 minutes, 4 hours and 200 meters.
func DefaultParams() Params {
	return Params{
		TimeMin:      5 * time.Minute,
		TimeMax:      4 * time.Hour,
		DistanceMaxM: 200,
	}
}

// Extract scans the locations in time order and emits one stay point for
// every run of at least two fixes where each step is longer than TimeMin,
// shorter than DistanceMaxM, and the run stays shorter than TimeMax.
// The input is not modified. The result holds no duplicates and is sorted by TStart.
func Extract(locations []models.LocationPoint, p Params) []models.StayPoint {
	if len(locations) < 2 {
		return nil
	}

	sorted := make([]models.LocationPoint, len(locations))
	copy(sorted, locations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	timeMinMs := p.TimeMin.Milliseconds()
	timeMaxMs := p.TimeMax.Milliseconds()

	seen := make(map[string]struct{})
	var result []models.StayPoint
	flush := func(run []models.LocationPoint) {
		if len(run) < 2 {
			return
		}
		sp := newStayPoint(run)
		key := sp.Key()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		result = append(result, sp)
	}

	run := []models.LocationPoint{sorted[0]}
	for _, cur := range sorted[1:] {
		prev := run[len(run)-1]
		dt := spatial.TimeDeltaMs(prev.Time, cur.Time)
		dtTotal := spatial.TimeDeltaMs(run[0].Time, cur.Time)
		dist := prev.DistanceM(cur.GeoPoint)

		if dt > timeMinMs && dtTotal < timeMaxMs && dist < p.DistanceMaxM {
			run = append(run, cur)
			continue
		}
		flush(run)
		run = []models.LocationPoint{cur}
	}
	flush(run)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TStart.Before(result[j].TStart)
	})
	return result
}

func newStayPoint(run []models.LocationPoint) models.StayPoint {
	points := make([]spatial.Point, len(run))
	accuracy := make([]float64, len(run))
	for i, l := range run {
		points[i] = l.Spatial()
		accuracy[i] = l.AccuracyM
	}
	centroid := spatial.Centroid(points)

	return models.StayPoint{
		GeoPoint:  models.GeoPoint{Lat: centroid.Lat, Lng: centroid.Lon},
		TStart:    run[0].Time,
		TStop:     run[len(run)-1].Time,
		AccuracyM: stats.Max(accuracy),
		Timezone:  run[0].Time.Location().String(),
	}
}
