package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/service"
	"github.com/jengzang/personal-context-builder/pkg/response"
)

// BatchRunner runs batch updates
type BatchRunner interface {
	Run(ctx context.Context, users []string, names []string) (*service.BatchReport, error)
}

// BatchLookup reads stored batch runs
type BatchLookup interface {
	Get(ctx context.Context, runID uuid.UUID) (*models.BatchRun, error)
}

// BatchHandler handles the batch update endpoints
type BatchHandler struct {
	runner BatchRunner
	runs   BatchLookup
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(runner BatchRunner, runs BatchLookup) *BatchHandler {
	return &BatchHandler{runner: runner, runs: runs}
}

type batchRequest struct {
	Users  []string `json:"users"`
	Models []string `json:"models"`
}

// Run handles POST /api/v1/batch. The batch runs in the request context.
func (h *BatchHandler) Run(c *gin.Context) {
	var req batchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	report, err := h.runner.Run(c.Request.Context(), req.Users, req.Models)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"run_id":    report.RunID,
		"succeeded": report.Succeeded,
		"failed":    report.Errors(),
	})
}

// Get handles GET /api/v1/batch/:run_id
func (h *BatchHandler) Get(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		response.BadRequest(c, "invalid run id")
		return
	}

	run, err := h.runs.Get(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, run)
}
