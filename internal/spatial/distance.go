package spatial

import (
	"math"
	"time"

	"github.com/golang/geo/s2"
)

// HaversineDistance calculates the great-circle distance between two points in meters
// using the Haversine formula
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// TimeDeltaMs returns to - from in milliseconds.
func TimeDeltaMs(from, to time.Time) int64 {
	return to.Sub(from).Milliseconds()
}

// OffsetsForRadius finds the smallest multiples of step degrees by which the
// latitude and, separately, the longitude of (lat, lon) must move to lie
// radius meters away. Radii beyond half the circumference are clamped to it
// and both offsets stop at 180 degrees, which is also where the longitude
// offset ends up at the poles.
func OffsetsForRadius(lat, lon, radius, step float64) (dLat, dLon float64) {
	if !(radius > 0) || !(step > 0) {
		return 0, 0
	}
	radius = math.Min(radius, MaxDistanceMeters)

	dLat = smallestStep(step, func(d float64) bool {
		return HaversineDistance(lat, lon, lat+d, lon) >= radius
	})
	dLon = smallestStep(step, func(d float64) bool {
		return HaversineDistance(lat, lon, lat, lon+d) >= radius
	})
	return dLat, dLon
}

// smallestStep binary searches the smallest k*step in [0, 180] for which
// reached holds. reached must be monotonic over that interval; both
// haversine offsets above are.
func smallestStep(step float64, reached func(float64) bool) float64 {
	lo, hi := int64(0), int64(math.Ceil(180/step))
	for lo < hi {
		mid := lo + (hi-lo)/2
		if reached(float64(mid) * step) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return float64(lo) * step
}

// Destination returns the point distance meters from (lat, lon) along the
// initial bearing, in degrees clockwise from north. Longitude is normalized
// to [-180, 180).
func Destination(lat, lon, bearing, distance float64) Point {
	phi1 := lat * math.Pi / 180
	lambda1 := lon * math.Pi / 180
	theta := bearing * math.Pi / 180
	delta := math.Min(distance, MaxDistanceMeters) / EarthRadiusMeters

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	lng := math.Mod(lambda2*180/math.Pi+540, 360) - 180
	return Point{Lat: phi2 * 180 / math.Pi, Lon: lng}
}

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers

	// MaxDistanceMeters is the largest great-circle distance, half the circumference.
	MaxDistanceMeters = math.Pi * EarthRadiusMeters
)
