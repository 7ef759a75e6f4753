// Package regions clusters stay points into stay regions.
package regions

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/spatial"
)

// Params configure the clusterer.
type Params struct {
	// DistanceThresholdM is the DBSCAN neighbourhood radius in meters.
	DistanceThresholdM float64 `yaml:"distance_threshold_m" json:"distance_threshold_m"`
	// AccuracyAware inflates every stay point by its GPS accuracy before
	// computing the region box.
	AccuracyAware bool `yaml:"accuracy_aware" json:"accuracy_aware"`
	MinSamples    int  `yaml:"min_samples" json:"min_samples"`
	// SamplesPerPoint is the number of surround points drawn per stay point.
	SamplesPerPoint int `yaml:"samples_per_point" json:"samples_per_point"`
	// IncrementDeg is the step used to grow the surround box.
	IncrementDeg float64 `yaml:"increment_deg" json:"increment_deg"`
}

// DefaultParams returns a 200 m accuracy-aware clusterer.
func DefaultParams() Params {
	return Params{
		DistanceThresholdM: 200,
		AccuracyAware:      true,
		MinSamples:         2,
		SamplesPerPoint:    100,
		IncrementDeg:       1e-6,
	}
}

// ringToleranceM is how far a surround sample may sit from the accuracy circle.
const ringToleranceM = 1.0

// maxDrawsPerSample bounds rejection sampling per requested sample.
const maxDrawsPerSample = 1000

// Cluster groups stay points with DBSCAN over a haversine metric and builds
// one region per cluster. Noise points are dropped.
func Cluster(points []models.StayPoint, p Params) []models.StayRegion {
	if len(points) == 0 {
		return nil
	}
	if p.MinSamples <= 0 {
		p.MinSamples = 2
	}

	sorted := make([]models.StayPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TStart.Equal(sorted[j].TStart) {
			return sorted[i].TStart.Before(sorted[j].TStart)
		}
		return sorted[i].Key() < sorted[j].Key()
	})

	labels := DBSCAN(len(sorted), p.DistanceThresholdM, p.MinSamples, func(i, j int) float64 {
		return sorted[i].DistanceM(sorted[j].GeoPoint)
	})

	var order []int
	clusters := make(map[int][]models.StayPoint)
	for i, label := range labels {
		if label == Noise {
			continue
		}
		if _, ok := clusters[label]; !ok {
			order = append(order, label)
		}
		clusters[label] = append(clusters[label], sorted[i])
	}

	regions := make([]models.StayRegion, 0, len(order))
	for _, label := range order {
		members := clusters[label]
		if p.AccuracyAware {
			regions = append(regions, fromClusterWithSurround(members, p))
		} else {
			regions = append(regions, fromCluster(members))
		}
	}
	return regions
}

// ClusterPerDay clusters the stay points of each calendar day (of TStart,
// in its own location) independently and concatenates the results by day.
func ClusterPerDay(points []models.StayPoint, p Params) []models.StayRegion {
	byDay := make(map[string][]models.StayPoint)
	var days []string
	for _, sp := range points {
		day := sp.TStart.Format(time.DateOnly)
		if _, ok := byDay[day]; !ok {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], sp)
	}
	sort.Strings(days)

	var regions []models.StayRegion
	for _, day := range days {
		regions = append(regions, Cluster(byDay[day], p)...)
	}
	return regions
}

// fromCluster builds the geometric region: box and centroid of the member
// centroids, time span of the members.
func fromCluster(members []models.StayPoint) models.StayRegion {
	points := make([]spatial.Point, len(members))
	for i, sp := range members {
		points[i] = sp.Spatial()
	}
	return build(members, points)
}

// fromClusterWithSurround replaces every member by points drawn on its
// accuracy circle, then builds the region geometry from those samples.
func fromClusterWithSurround(members []models.StayPoint, p Params) models.StayRegion {
	var points []spatial.Point
	for _, sp := range members {
		points = append(points, Surround(sp, p.SamplesPerPoint, p.IncrementDeg)...)
	}
	return build(members, points)
}

func build(members []models.StayPoint, points []spatial.Point) models.StayRegion {
	centroid := spatial.Centroid(points)
	box := spatial.BoundingBox(points)

	tStart, tStop := members[0].TStart, members[0].TStop
	ids := make([]uuid.UUID, len(members))
	for i, sp := range members {
		if sp.TStart.Before(tStart) {
			tStart = sp.TStart
		}
		if sp.TStop.After(tStop) {
			tStop = sp.TStop
		}
		ids[i] = sp.ID()
	}

	region := models.NewStayRegion(tStart, tStop,
		models.GeoPoint{Lat: centroid.Lat, Lng: centroid.Lon},
		models.GeoPoint{Lat: box.Max.Lat(), Lng: box.Max.Lon()},
		models.GeoPoint{Lat: box.Min.Lat(), Lng: box.Min.Lon()},
	)
	region.Timezone = members[0].Timezone
	region.StayPoints = ids
	return region
}

// Surround draws n points lying within 1 m of the accuracy circle of sp.
// Points are rejection sampled inside the box grown by OffsetsForRadius;
// when the ring is too thin for that to finish within the draw budget, the
// rest are projected onto the circle at random bearings. A stay point
// without accuracy yields its own centroid. The draw is seeded from the
// stay point key, so the same stay point always gives the same samples.
func Surround(sp models.StayPoint, n int, step float64) []spatial.Point {
	center := sp.Spatial()
	if !(sp.AccuracyM > 0) || n <= 0 {
		return []spatial.Point{center}
	}
	radius := math.Min(sp.AccuracyM, spatial.MaxDistanceMeters)

	dLat, dLon := spatial.OffsetsForRadius(center.Lat, center.Lon, radius, step)

	h := fnv.New64a()
	h.Write([]byte(sp.Key()))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	samples := make([]spatial.Point, 0, n)
	for draws := 0; len(samples) < n && draws < n*maxDrawsPerSample; draws++ {
		candidate := spatial.Point{
			Lat: center.Lat + (2*rng.Float64()-1)*dLat,
			Lon: center.Lon + (2*rng.Float64()-1)*dLon,
		}
		if math.Abs(candidate.Lat) > 90 || math.Abs(candidate.Lon) > 180 {
			continue
		}
		d := spatial.HaversineDistance(center.Lat, center.Lon, candidate.Lat, candidate.Lon)
		if math.Abs(d-radius) < ringToleranceM {
			samples = append(samples, candidate)
		}
	}
	for len(samples) < n {
		samples = append(samples, spatial.Destination(center.Lat, center.Lon, 360*rng.Float64(), radius))
	}
	return samples
}
