package labels_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/personal-context-builder/internal/analysis/labels"
	"github.com/jengzang/personal-context-builder/internal/models"
)

var t0 = time.Date(2020, 3, 2, 8, 0, 0, 0, time.UTC)

func box(center, topLeft, bottomRight float64) models.StayRegion {
	return models.NewStayRegion(t0, t0.Add(time.Hour),
		models.GeoPoint{Lat: center, Lng: center},
		models.GeoPoint{Lat: topLeft, Lng: topLeft},
		models.GeoPoint{Lat: bottomRight, Lng: bottomRight},
	)
}

func place(lat, lng float64, label string) models.UserPlace {
	return models.NewUserPlace(t0, lat, lng, label, "user")
}

func TestRegionMembership(t *testing.T) {
	r := box(1.5, 2, 1)
	assert.True(t, r.Contains(models.GeoPoint{Lat: 1.1, Lng: 1.1}))
	assert.False(t, r.Contains(models.GeoPoint{Lat: 2.1, Lng: 2.1}))
}

func TestLabelizePairsRegionsWithPlaces(t *testing.T) {
	regions := []models.StayRegion{box(1.5, 2, 1), box(11.5, 12, 11)}
	places := []models.UserPlace{place(1.2, 1.2, "HOME"), place(11.2, 11.2, "WORK")}
	reversed := []models.UserPlace{places[1], places[0]}

	for _, ps := range [][]models.UserPlace{places, reversed} {
		labelled, unlabelled := labels.Labelize(regions, ps)
		require.Len(t, labelled, 2)
		assert.Empty(t, unlabelled)
		assert.Equal(t, "HOME", labelled[0].Label)
		assert.Equal(t, "WORK", labelled[1].Label)
		assert.Equal(t, regions[0].Bounds, labelled[0].Bounds)
	}
}

func TestLabelizeFirstMatchWins(t *testing.T) {
	regions := []models.StayRegion{box(1.5, 2, 1)}
	places := []models.UserPlace{place(1.2, 1.2, "GYM"), place(1.3, 1.3, "HOME")}

	labelled, _ := labels.Labelize(regions, places)
	require.Len(t, labelled, 1)
	assert.Equal(t, "GYM", labelled[0].Label)
}

func TestLabelizeResidual(t *testing.T) {
	regions := []models.StayRegion{box(1.5, 2, 1), box(11.5, 12, 11)}
	places := []models.UserPlace{place(1.2, 1.2, "HOME"), place(50, 50, "FAR")}

	labelled, unlabelled := labels.Labelize(regions, places)
	require.Len(t, labelled, 1)
	require.Len(t, unlabelled, 1)
	assert.Equal(t, regions[1], unlabelled[0])
	assert.LessOrEqual(t, len(labelled), len(regions))

	labelled, unlabelled = labels.Labelize(regions, nil)
	assert.Empty(t, labelled)
	assert.Equal(t, regions, unlabelled)
}

func TestLabelForBoundary(t *testing.T) {
	label, ok := labels.LabelFor(box(1.5, 2, 1), []models.UserPlace{place(2, 2, "EDGE")})
	assert.True(t, ok)
	assert.Equal(t, "EDGE", label)

	_, ok = labels.LabelFor(box(1.5, 2, 1), []models.UserPlace{place(2.0001, 2, "OUT")})
	assert.False(t, ok)
}
