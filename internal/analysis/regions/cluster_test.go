package regions_test

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/personal-context-builder/internal/analysis/regions"
	"github.com/jengzang/personal-context-builder/internal/analysis/staypoints"
	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/spatial"
)

var t0 = time.Date(2020, 3, 2, 8, 0, 0, 0, time.UTC)

func stayPoint(start time.Duration, lat, lng, acc float64) models.StayPoint {
	return models.StayPoint{
		GeoPoint:  models.GeoPoint{Lat: lat, Lng: lng},
		TStart:    t0.Add(start),
		TStop:     t0.Add(start + 30*time.Minute),
		AccuracyM: acc,
		Timezone:  "UTC",
	}
}

func TestDBSCAN(t *testing.T) {
	xs := []float64{0, 1, 2, 10, 11, 50}
	labels := regions.DBSCAN(len(xs), 1.5, 2, func(i, j int) float64 {
		d := xs[i] - xs[j]
		if d < 0 {
			d = -d
		}
		return d
	})

	// 0,1,2 chain together; 10,11 form a pair; 50 is noise
	assert.Equal(t, []int{0, 0, 0, 1, 1, regions.Noise}, labels)
}

func TestDBSCANEpsIsInclusive(t *testing.T) {
	labels := regions.DBSCAN(2, 1, 2, func(i, j int) float64 { return 1 })
	assert.Equal(t, []int{0, 0}, labels)
}

func TestClusterTwoDistantGroups(t *testing.T) {
	var locations []models.LocationPoint
	for i := 0; i < 100; i++ {
		ts := t0.Add(time.Duration(i) * 5 * time.Second)
		var lat, lng float64
		if i < 50 {
			lat, lng = -float64(i%11), -float64(i%7)
		} else {
			lat, lng = 50+float64(i%6), 150+float64(i%5)
		}
		locations = append(locations, models.NewLocationPoint(ts, lat, lng, 0))
	}

	sps := staypoints.Extract(locations, staypoints.Params{
		TimeMin:      4999 * time.Millisecond,
		TimeMax:      time.Minute,
		DistanceMaxM: 1e7,
	})
	require.Len(t, sps, 10)

	for _, accuracyAware := range []bool{false, true} {
		p := regions.DefaultParams()
		p.DistanceThresholdM = 1e7
		p.AccuracyAware = accuracyAware

		result := regions.Cluster(sps, p)
		require.Len(t, result, 2)
		assert.Len(t, result[0].StayPoints, 5)
		assert.Len(t, result[1].StayPoints, 5)
		assert.Less(t, result[0].Lat, 0.0)
		assert.Greater(t, result[1].Lat, 0.0)
	}
}

func TestClusterDropsNoise(t *testing.T) {
	sps := []models.StayPoint{
		stayPoint(0, 46.5, 6.6, 0),
		stayPoint(time.Hour, 46.5001, 6.6001, 0),
		stayPoint(2*time.Hour, 47.5, 7.6, 0),
	}

	p := regions.DefaultParams()
	p.AccuracyAware = false
	result := regions.Cluster(sps, p)
	require.Len(t, result, 1)

	r := result[0]
	assert.Equal(t, sps[0].TStart, r.TStart)
	assert.Equal(t, sps[1].TStop, r.TStop)
	assert.InDelta(t, 46.50005, r.Lat, 1e-9)
	assert.Equal(t, models.GeoPoint{Lat: 46.5001, Lng: 6.6001}, r.TopLeft())
	assert.Equal(t, models.GeoPoint{Lat: 46.5, Lng: 6.6}, r.BottomRight())
	for _, sp := range sps[:2] {
		assert.True(t, r.Contains(sp.GeoPoint))
	}
	assert.ElementsMatch(t, []uuid.UUID{sps[0].ID(), sps[1].ID()}, r.StayPoints)
}

func TestClusterEmptyAndSingle(t *testing.T) {
	assert.Empty(t, regions.Cluster(nil, regions.DefaultParams()))
	assert.Empty(t, regions.Cluster([]models.StayPoint{stayPoint(0, 1, 1, 0)}, regions.DefaultParams()))
}

func TestClusterAccuracyAwareCoversRadius(t *testing.T) {
	sps := []models.StayPoint{
		stayPoint(0, 46.5, 6.6, 50),
		stayPoint(time.Hour, 46.5, 6.6, 50),
	}

	result := regions.Cluster(sps, regions.DefaultParams())
	require.Len(t, result, 1)
	r := result[0]

	north := spatial.HaversineDistance(46.5, 6.6, r.TopLeft().Lat, 6.6)
	south := spatial.HaversineDistance(46.5, 6.6, r.BottomRight().Lat, 6.6)
	east := spatial.HaversineDistance(46.5, 6.6, 46.5, r.TopLeft().Lng)
	west := spatial.HaversineDistance(46.5, 6.6, 46.5, r.BottomRight().Lng)
	for _, d := range []float64{north, south, east, west} {
		assert.GreaterOrEqual(t, d, 45.0)
		assert.LessOrEqual(t, d, 51.0)
	}
	assert.True(t, r.Contains(sps[0].GeoPoint))
}

func TestClusterIsDeterministic(t *testing.T) {
	sps := []models.StayPoint{
		stayPoint(0, 46.5, 6.6, 20),
		stayPoint(time.Hour, 46.5002, 6.6, 35),
		stayPoint(3*time.Hour, 46.5001, 6.6003, 10),
	}
	reversed := []models.StayPoint{sps[2], sps[1], sps[0]}

	first := regions.Cluster(sps, regions.DefaultParams())
	second := regions.Cluster(reversed, regions.DefaultParams())
	assert.Equal(t, first, second)
}

func TestSurround(t *testing.T) {
	sp := stayPoint(0, 46.5, 6.6, 30)
	samples := regions.Surround(sp, 100, 1e-6)
	require.Len(t, samples, 100)
	for _, s := range samples {
		d := spatial.HaversineDistance(46.5, 6.6, s.Lat, s.Lon)
		assert.InDelta(t, 30, d, 1)
	}

	assert.Equal(t, []spatial.Point{{Lat: 46.5, Lon: 6.6}}, regions.Surround(stayPoint(0, 46.5, 6.6, 0), 100, 1e-6))
}

func TestSurroundLargeAccuracy(t *testing.T) {
	for _, acc := range []float64{5e5, 2.1e7} {
		sp := stayPoint(0, 46.5, 6.6, acc)
		radius := math.Min(acc, spatial.MaxDistanceMeters)

		done := make(chan []spatial.Point, 1)
		go func() { done <- regions.Surround(sp, 100, 1e-6) }()

		var samples []spatial.Point
		select {
		case samples = <-done:
		case <-time.After(30 * time.Second):
			t.Fatalf("Surround(accuracy=%v m) did not return", acc)
		}

		require.Len(t, samples, 100, "accuracy %v", acc)
		for _, s := range samples {
			d := spatial.HaversineDistance(46.5, 6.6, s.Lat, s.Lon)
			assert.InDelta(t, radius, d, 1, "accuracy %v", acc)
			assert.LessOrEqual(t, math.Abs(s.Lat), 90.0)
		}
		assert.Equal(t, samples, regions.Surround(sp, 100, 1e-6), "samples are seeded by the stay point")
	}
}

func TestClusterPerDay(t *testing.T) {
	day := 24 * time.Hour
	sps := []models.StayPoint{
		stayPoint(0, 46.5, 6.6, 0),
		stayPoint(time.Hour, 46.5, 6.6, 0),
		// same place on the next day, clustered on its own
		stayPoint(day, 46.5, 6.6, 0),
		stayPoint(day+time.Hour, 46.5, 6.6, 0),
		// a lone stay on a third day is noise
		stayPoint(2*day, 46.5, 6.6, 0),
	}

	p := regions.DefaultParams()
	p.AccuracyAware = false

	assert.Len(t, regions.Cluster(sps, p), 1)

	perDay := regions.ClusterPerDay(sps, p)
	require.Len(t, perDay, 2)
	assert.Equal(t, t0, perDay[0].TStart)
	assert.Equal(t, t0.Add(day), perDay[1].TStart)
}

// scatter draws n stay points within about 30 m of each center, on the day
// starting at offset.
func scatter(rng *rand.Rand, centers []models.GeoPoint, n int, offset time.Duration) ([]models.StayPoint, map[uuid.UUID]int) {
	var points []models.StayPoint
	origin := make(map[uuid.UUID]int)
	for c, center := range centers {
		for i := 0; i < n; i++ {
			start := offset + time.Duration(c*n+i)*40*time.Minute
			sp := stayPoint(start,
				center.Lat+(2*rng.Float64()-1)*0.0003,
				center.Lng+(2*rng.Float64()-1)*0.0003,
				0)
			points = append(points, sp)
			origin[sp.ID()] = c
		}
	}
	return points, origin
}

var threeSites = []models.GeoPoint{
	{Lat: 46.5, Lng: 6.6},
	{Lat: 46.6, Lng: 6.6},
	{Lat: 47.0, Lng: 7.0},
}

func TestClusterBoxContainsEveryMember(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	points, origin := scatter(rng, threeSites, 8, 0)
	byID := make(map[uuid.UUID]models.StayPoint, len(points))
	for _, sp := range points {
		byID[sp.ID()] = sp
	}

	p := regions.DefaultParams()
	p.AccuracyAware = false
	result := regions.Cluster(points, p)
	require.Len(t, result, len(threeSites))

	for _, r := range result {
		require.Len(t, r.StayPoints, 8)
		site := origin[r.StayPoints[0]]
		for _, id := range r.StayPoints {
			sp := byID[id]
			assert.Equal(t, site, origin[id], "region mixes sites")
			assert.True(t, r.Contains(sp.GeoPoint), "member %v outside box", sp.GeoPoint)
			assert.False(t, sp.TStart.Before(r.TStart))
			assert.False(t, sp.TStop.After(r.TStop))
		}
	}
}

func TestReclusteringCentroidsKeepsSitesApart(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	monday, origin := scatter(rng, threeSites, 5, 0)
	tuesday, tuesdayOrigin := scatter(rng, threeSites, 5, 24*time.Hour)
	for id, site := range tuesdayOrigin {
		origin[id] = site
	}

	p := regions.DefaultParams()
	p.AccuracyAware = false
	perDay := regions.ClusterPerDay(append(monday, tuesday...), p)
	require.Len(t, perDay, 2*len(threeSites))

	// feed every region back in as a stay point at its centroid
	centroids := make([]models.StayPoint, len(perDay))
	site := make(map[uuid.UUID]int, len(perDay))
	for i, r := range perDay {
		centroids[i] = models.StayPoint{
			GeoPoint: r.GeoPoint,
			TStart:   r.TStart,
			TStop:    r.TStop,
			Timezone: r.Timezone,
		}
		site[centroids[i].ID()] = origin[r.StayPoints[0]]
	}

	again := regions.Cluster(centroids, p)
	require.Len(t, again, len(threeSites))
	seen := make(map[int]bool)
	for _, r := range again {
		require.Len(t, r.StayPoints, 2)
		first := site[r.StayPoints[0]]
		for _, id := range r.StayPoints {
			assert.Equal(t, first, site[id], "region spans two sites")
		}
		assert.False(t, seen[first])
		seen[first] = true
	}
}
