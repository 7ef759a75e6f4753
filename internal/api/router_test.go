package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	_ "github.com/jengzang/personal-context-builder/internal/analysis/profiles"
	"github.com/jengzang/personal-context-builder/internal/api"
	"github.com/jengzang/personal-context-builder/internal/config"
	"github.com/jengzang/personal-context-builder/internal/database"
	"github.com/jengzang/personal-context-builder/internal/handler"
	"github.com/jengzang/personal-context-builder/internal/mapping"
	"github.com/jengzang/personal-context-builder/internal/middleware"
	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/repository"
	"github.com/jengzang/personal-context-builder/internal/service"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := database.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = database.Migrate(context.Background(), conn)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.RateLimit = 0

	locations := repository.NewLocationRepository(conn)
	places := repository.NewPlaceRepository(conn)
	batches := repository.NewBatchRepository(conn)
	routines := service.NewRoutineService(
		analysis.DefaultPipeline(mapping.Default()),
		locations, places,
		repository.NewProfileRepository(conn),
		repository.NewRoutineRepository(conn),
	)

	engine := api.SetupRouter(t.Context(), cfg, api.Handlers{
		Stay:    handler.NewStayHandler(service.NewGeoService(locations, places)),
		Routine: handler.NewRoutineHandler(routines),
		Batch:   handler.NewBatchHandler(service.NewRunner(routines, batches, 2), batches),
	})

	token, err := middleware.IssueToken(cfg.JWTSecret, "test", time.Hour)
	require.NoError(t, err)
	return &server{t: t, engine: engine, token: token}
}

func (s *server) do(method, path string, body interface{}, auth bool) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

// Monday
var day0 = time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)

func commuter(days int) []models.LocationPoint {
	var locations []models.LocationPoint
	for d := 0; d < days; d++ {
		start := day0.AddDate(0, 0, d)
		for m := 0; m < 8*60; m += 10 {
			locations = append(locations, models.NewLocationPoint(start.Add(time.Duration(m)*time.Minute), 46.5, 6.6, 0))
		}
		for m := 9 * 60; m < 17*60; m += 10 {
			locations = append(locations, models.NewLocationPoint(start.Add(time.Duration(m)*time.Minute), 46.52, 6.63, 0))
		}
	}
	return locations
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	s := newServer(t)
	code, _ := s.do(http.MethodPost, "/api/v1/locations", gin.H{"user_id": "alice", "locations": commuter(1)}, false)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(http.MethodPost, "/api/v1/batch", nil, false)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/api/v1/models", nil, false)
	assert.Equal(t, http.StatusOK, code)
}

func TestEndToEnd(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(http.MethodPost, "/api/v1/locations", gin.H{"user_id": "alice", "locations": commuter(3)}, true)
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/v1/locations", gin.H{"user_id": "bob", "locations": commuter(1)}, true)
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/v1/places", gin.H{"places": []models.UserPlace{
		models.NewUserPlace(day0, 46.5, 6.6, "HOME", "alice"),
		models.NewUserPlace(day0, 46.52, 6.63, "WORK", "alice"),
	}}, true)
	require.Equal(t, http.StatusCreated, code)

	// bob has no places and fails at the user_places stage
	code, env := s.do(http.MethodPost, "/api/v1/routines/bob/compute", nil, true)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, string(env.Data), "user_places")

	code, env = s.do(http.MethodPost, "/api/v1/batch", nil, true)
	require.Equal(t, http.StatusOK, code)
	var report struct {
		RunID     string            `json:"run_id"`
		Succeeded []string          `json:"succeeded"`
		Failed    map[string]string `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, []string{"alice"}, report.Succeeded)
	assert.Contains(t, report.Failed, "bob")

	code, env = s.do(http.MethodGet, "/api/v1/batch/"+report.RunID, nil, false)
	require.Equal(t, http.StatusOK, code)
	var run models.BatchRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.True(t, run.Done())
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Failed)

	code, env = s.do(http.MethodGet, "/api/v1/routines/alice", nil, false)
	require.Equal(t, http.StatusOK, code)
	var vectors map[string][]float64
	require.NoError(t, json.Unmarshal(env.Data, &vectors))
	assert.Len(t, vectors, 2)

	code, _ = s.do(http.MethodGet, "/api/v1/routines/bob", nil, false)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(http.MethodGet, "/api/v1/semantic_routines/alice/0/10:00", nil, false)
	require.Equal(t, http.StatusOK, code)
	var slot service.SlotDistribution
	require.NoError(t, json.Unmarshal(env.Data, &slot))
	assert.Equal(t, "Monday", slot.Weekday)
	assert.Equal(t, "WORK", slot.LabelDistribution[0].Label.Name)
	assert.Equal(t, 1.0, slot.Confidence)

	code, env = s.do(http.MethodGet, "/api/v1/semantic_routines_transition/leaving/alice/tuesday/HOME", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"transition_time":"07:30:00"`)

	code, env = s.do(http.MethodGet, "/api/v1/closest/46.5/6.6/1", nil, false)
	require.Equal(t, http.StatusOK, code)
	var closest []service.UserDistance
	require.NoError(t, json.Unmarshal(env.Data, &closest))
	require.Len(t, closest, 1)

	code, env = s.do(http.MethodGet, "/api/v1/corpus/alice", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"days"`)
}

func TestStatelessStages(t *testing.T) {
	s := newServer(t)

	code, env := s.do(http.MethodPost, "/api/v1/staypoints", gin.H{"locations": commuter(1)}, false)
	require.Equal(t, http.StatusOK, code)
	var sps struct {
		StayPoints []models.StayPoint `json:"staypoints"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sps))
	require.NotEmpty(t, sps.StayPoints)

	code, env = s.do(http.MethodPost, "/api/v1/stayregions", gin.H{"staypoints": sps.StayPoints}, false)
	require.Equal(t, http.StatusOK, code)
	var regions struct {
		StayRegions []json.RawMessage `json:"stayregions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &regions))
	assert.Len(t, regions.StayRegions, 2)
}
