package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/service"
	"github.com/jengzang/personal-context-builder/pkg/response"
)

// RoutineServicer is the part of service.RoutineService the handlers use
type RoutineServicer interface {
	ComputeUser(ctx context.Context, userID string, names []string) ([]*models.Profile, error)
	Profiles(ctx context.Context, userID string, names []string) (map[string][]float64, error)
	AllProfiles(ctx context.Context, names []string) (map[string]map[string][]float64, error)
	Compare(ctx context.Context, userID, model string, others []string) ([]service.Similarity, error)
	SemanticSlot(ctx context.Context, userID string, weekday time.Weekday, slot string) (*service.SlotDistribution, error)
	Transition(ctx context.Context, userID string, weekday time.Weekday, label string, entering bool) (*service.TransitionResult, error)
	Corpus(ctx context.Context, userID string) ([][]string, error)
}

var _ RoutineServicer = (*service.RoutineService)(nil)

// RoutineHandler handles the profile and routine endpoints
type RoutineHandler struct {
	service RoutineServicer
}

// NewRoutineHandler creates a new routine handler
func NewRoutineHandler(service RoutineServicer) *RoutineHandler {
	return &RoutineHandler{service: service}
}

// Models handles GET /api/v1/models
func (h *RoutineHandler) Models(c *gin.Context) {
	docs := make(map[string]string)
	for _, name := range analysis.AnalyzerNames() {
		docs[name] = analysis.GetAnalyzer(name).Description()
	}
	response.Success(c, docs)
}

// Routines handles GET /api/v1/routines
func (h *RoutineHandler) Routines(c *gin.Context) {
	all, err := h.service.AllProfiles(c.Request.Context(), splitList(c.Query("models")))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, all)
}

// UserRoutines handles GET /api/v1/routines/:user_id
func (h *RoutineHandler) UserRoutines(c *gin.Context) {
	profiles, err := h.service.Profiles(c.Request.Context(), c.Param("user_id"), splitList(c.Query("models")))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, profiles)
}

// Compute handles POST /api/v1/routines/:user_id/compute
func (h *RoutineHandler) Compute(c *gin.Context) {
	userID := c.Param("user_id")
	profiles, err := h.service.ComputeUser(c.Request.Context(), userID, splitList(c.Query("models")))
	if err != nil {
		respondError(c, err)
		return
	}

	computed := make(map[string]time.Time, len(profiles))
	for _, p := range profiles {
		computed[p.Model] = p.ComputedAt
	}
	response.Success(c, gin.H{"user_id": userID, "computed": computed})
}

// Compare handles GET /api/v1/compare_routines/:user_id/:model
func (h *RoutineHandler) Compare(c *gin.Context) {
	result, err := h.service.Compare(c.Request.Context(), c.Param("user_id"), c.Param("model"), splitList(c.Query("users")))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// SemanticRoutine handles GET /api/v1/semantic_routines/:user_id/:weekday/:time
func (h *RoutineHandler) SemanticRoutine(c *gin.Context) {
	weekday, ok := parseWeekday(c.Param("weekday"))
	if !ok {
		response.BadRequest(c, "invalid weekday")
		return
	}
	slot, ok := parseSlot(c.Param("time"))
	if !ok {
		response.BadRequest(c, "invalid time, expected HH:MM or HH:MM:SS")
		return
	}

	dist, err := h.service.SemanticSlot(c.Request.Context(), c.Param("user_id"), weekday, slot)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dist)
}

// Transition handles GET /api/v1/semantic_routines_transition/:direction/:user_id/:weekday/:label
func (h *RoutineHandler) Transition(c *gin.Context) {
	var entering bool
	switch c.Param("direction") {
	case "entering":
		entering = true
	case "leaving":
	default:
		response.BadRequest(c, "direction must be entering or leaving")
		return
	}
	weekday, ok := parseWeekday(c.Param("weekday"))
	if !ok {
		response.BadRequest(c, "invalid weekday")
		return
	}

	result, err := h.service.Transition(c.Request.Context(), c.Param("user_id"), weekday, c.Param("label"), entering)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// Corpus handles GET /api/v1/corpus/:user_id
func (h *RoutineHandler) Corpus(c *gin.Context) {
	sentences, err := h.service.Corpus(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": c.Param("user_id"), "days": sentences})
}

func parseSlot(s string) (string, bool) {
	for _, layout := range []string{models.SlotTimeLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.SlotTimeLayout), true
		}
	}
	return "", false
}
