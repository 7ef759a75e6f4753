package spatial

import (
	"github.com/paulmach/orb"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// Orb converts the point to an orb.Point, which is ordered [lon, lat].
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Centroid calculates the geographic centroid of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// BoundingBox calculates the bounding box of a set of points.
// Min holds the smallest lon/lat, Max the largest.
func BoundingBox(points []Point) orb.Bound {
	if len(points) == 0 {
		return orb.Bound{}
	}

	b := points[0].Orb().Bound()
	for _, p := range points[1:] {
		b = b.Extend(p.Orb())
	}
	return b
}

// BoundContains is an inclusive test of p against b on both axes.
// It is a flat lat/lon box: it is not geodesic and does not wrap the antimeridian.
func BoundContains(b orb.Bound, p Point) bool {
	return b.Contains(p.Orb())
}

// BoundingBoxArea calculates the area of a bounding box in square meters
func BoundingBoxArea(b orb.Bound) float64 {
	width := HaversineDistance(b.Min.Lat(), b.Min.Lon(), b.Min.Lat(), b.Max.Lon())
	height := HaversineDistance(b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Min.Lon())
	return width * height
}
