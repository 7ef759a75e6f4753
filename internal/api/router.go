package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/personal-context-builder/internal/config"
	"github.com/jengzang/personal-context-builder/internal/handler"
	"github.com/jengzang/personal-context-builder/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Stay    *handler.StayHandler
	Routine *handler.RoutineHandler
	Batch   *handler.BatchHandler
}

// SetupRouter builds the gin engine. Read routes are open; routes that
// write or trigger computation require a bearer token. Rate limits count
// per client address, and per token subject on the protected routes. The
// limiters run until ctx is done.
func SetupRouter(ctx context.Context, cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	var subjectLimit gin.HandlerFunc
	if cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(ctx, cfg.RateLimit, time.Minute), middleware.ByClientIP))
		subjectLimit = middleware.RateLimit(middleware.NewRateLimiter(ctx, cfg.RateLimit, time.Minute), middleware.BySubject)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Personal context builder is running",
		})
	})

	api := r.Group("/api/v1")
	{
		// stateless pipeline stages
		api.POST("/staypoints", h.Stay.StayPoints)
		api.POST("/stayregions", h.Stay.StayRegions)

		api.GET("/models", h.Routine.Models)
		api.GET("/routines", h.Routine.Routines)
		api.GET("/routines/:user_id", h.Routine.UserRoutines)
		api.GET("/semantic_routines/:user_id/:weekday/:time", h.Routine.SemanticRoutine)
		api.GET("/semantic_routines_transition/:direction/:user_id/:weekday/:label", h.Routine.Transition)
		api.GET("/corpus/:user_id", h.Routine.Corpus)
		api.GET("/closest/:lat/:lng/:n", h.Stay.Closest)
		api.GET("/compare_routines/:user_id/:model", h.Routine.Compare)
		api.GET("/batch/:run_id", h.Batch.Get)

		protected := api.Group("", middleware.Auth(cfg.JWTSecret))
		if subjectLimit != nil {
			protected.Use(subjectLimit)
		}
		{
			protected.POST("/locations", h.Stay.AddLocations)
			protected.POST("/places", h.Stay.AddPlaces)
			protected.POST("/routines/:user_id/compute", h.Routine.Compute)
			protected.POST("/batch", h.Batch.Run)
		}
	}

	return r
}
