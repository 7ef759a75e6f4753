package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/personal-context-builder/internal/database"
	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/repository"
)

var t0 = time.Date(2020, 3, 2, 8, 0, 0, 0, time.UTC)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := database.Open(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = database.Migrate(context.Background(), conn)
	require.NoError(t, err)
	return conn
}

func TestLocationRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLocationRepository(newDB(t))

	zurich, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)

	require.NoError(t, repo.Insert(ctx, "alice", []models.LocationPoint{
		models.NewLocationPoint(t0.Add(10*time.Minute), 46.5, 6.6, 12),
		models.NewLocationPoint(t0.In(zurich), 46.51, 6.61, 8),
	}))
	require.NoError(t, repo.Insert(ctx, "bob", []models.LocationPoint{
		models.NewLocationPoint(t0, 47, 8, 5),
	}))
	require.NoError(t, repo.Insert(ctx, "carol", nil))

	locations, err := repo.List(ctx, repository.LocationFilter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.True(t, locations[0].Time.Equal(t0))
	assert.Equal(t, "Europe/Zurich", locations[0].Time.Location().String())
	assert.Equal(t, 46.51, locations[0].Lat)
	assert.Equal(t, 8.0, locations[0].AccuracyM)
	assert.True(t, locations[1].Time.Equal(t0.Add(10*time.Minute)))

	locations, err = repo.List(ctx, repository.LocationFilter{UserID: "alice", From: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.Len(t, locations, 1)

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestRealtimeKeepsLatest(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewLocationRepository(newDB(t))

	require.NoError(t, repo.UpsertRealtime(ctx, "alice", models.NewLocationPoint(t0, 1, 1, 0)))
	require.NoError(t, repo.UpsertRealtime(ctx, "alice", models.NewLocationPoint(t0.Add(time.Hour), 2, 2, 0)))
	// older fix is ignored
	require.NoError(t, repo.UpsertRealtime(ctx, "alice", models.NewLocationPoint(t0.Add(-time.Hour), 3, 3, 0)))
	require.NoError(t, repo.UpsertRealtime(ctx, "bob", models.NewLocationPoint(t0, 4, 4, 0)))

	latest, err := repo.Realtime(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 2.0, latest["alice"].Lat)
	assert.Equal(t, 4.0, latest["bob"].Lng)
}

func TestPlaces(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPlaceRepository(newDB(t))

	require.NoError(t, repo.Insert(ctx, []models.UserPlace{
		models.NewUserPlace(t0, 46.5, 6.6, "HOME", "alice"),
		models.NewUserPlace(t0, 46.52, 6.63, "WORK", "alice"),
		models.NewUserPlace(t0, 47, 8, "HOME", "bob"),
	}))
	require.Error(t, repo.Insert(ctx, []models.UserPlace{models.NewUserPlace(t0, 1, 1, "HOME", "")}))

	places, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "HOME", places[0].Label)
	assert.Equal(t, "WORK", places[1].Label)
	assert.Equal(t, "alice", places[1].User)

	n, err := repo.DeleteByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	places, err = repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProfileRepository(newDB(t))

	_, err := repo.Get(ctx, "SimpleBOW", "alice")
	require.ErrorIs(t, err, repository.ErrNotFound)

	p := &models.Profile{UserID: "alice", Model: "SimpleBOW", Vector: []float64{0.5, 0, 1}, ComputedAt: t0}
	require.NoError(t, repo.Save(ctx, p))
	p.Vector = []float64{1, 1, 1}
	require.NoError(t, repo.Save(ctx, p))
	require.NoError(t, repo.Save(ctx, &models.Profile{UserID: "bob", Model: "SimpleBOW", ComputedAt: t0}))

	got, err := repo.Get(ctx, "SimpleBOW", "alice")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, got.Vector)
	assert.True(t, got.ComputedAt.Equal(t0))

	all, err := repo.ListByModel(ctx, "SimpleBOW")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].UserID)
	assert.Empty(t, all[1].Vector)

	require.NoError(t, repo.Delete(ctx, "SimpleBOW", "bob"))
	require.ErrorIs(t, repo.Delete(ctx, "SimpleBOW", "bob"), repository.ErrNotFound)
}

func TestRoutines(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRoutineRepository(newDB(t))

	_, err := repo.Get(ctx, "alice")
	require.ErrorIs(t, err, repository.ErrNotFound)

	routine := models.SemanticRoutine{
		time.Monday: {
			"08:00:00": {4: 0.75, 0: 0.25},
			"08:30:00": {5: 1},
		},
		time.Sunday: {"08:00:00": {1: 1}},
	}
	require.NoError(t, repo.Save(ctx, "alice", routine, t0))
	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, routine, got)

	// saving again replaces
	require.NoError(t, repo.Save(ctx, "alice", models.SemanticRoutine{time.Tuesday: {"00:00:00": {0: 1}}}, t0))
	_, err = repo.Slot(ctx, "alice", time.Monday, "08:00:00")
	require.ErrorIs(t, err, repository.ErrNotFound)

	dist, err := repo.Slot(ctx, "alice", time.Tuesday, "00:00:00")
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 1}, dist)
}

func TestBatchRuns(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewBatchRepository(newDB(t))
	id := uuid.New()

	require.NoError(t, repo.Start(ctx, id, t0))
	run, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, run.Done())

	require.NoError(t, repo.Finish(ctx, id, 3, 1, t0.Add(time.Minute)))
	run, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, run.Done())
	assert.Equal(t, 3, run.Succeeded)
	assert.Equal(t, 1, run.Failed)

	_, err = repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, repo.Finish(ctx, uuid.New(), 0, 0, t0), repository.ErrNotFound)
}
