package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jengzang/personal-context-builder/internal/analysis/regions"
	"github.com/jengzang/personal-context-builder/internal/analysis/staypoints"
	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/service"
	"github.com/jengzang/personal-context-builder/internal/spatial"
	"github.com/jengzang/personal-context-builder/pkg/response"
)

// GeoServicer is the part of service.GeoService the handlers use
type GeoServicer interface {
	AddLocations(ctx context.Context, userID string, locations []models.LocationPoint) error
	AddPlaces(ctx context.Context, places []models.UserPlace) error
	StayPoints(locations []models.LocationPoint, p staypoints.Params) ([]models.StayPoint, error)
	StayRegions(points []models.StayPoint, p regions.Params, perDay bool) ([]models.StayRegion, error)
	Closest(ctx context.Context, lat, lng float64, n int) ([]service.UserDistance, error)
}

var _ GeoServicer = (*service.GeoService)(nil)

// StayHandler handles the stay point, stay region and ingest endpoints
type StayHandler struct {
	service GeoServicer
}

// NewStayHandler creates a new stay handler
func NewStayHandler(service GeoServicer) *StayHandler {
	return &StayHandler{service: service}
}

type stayPointsRequest struct {
	Locations    []models.LocationPoint `json:"locations" binding:"required"`
	TimeMinMs    *int64                 `json:"time_min_ms"`
	TimeMaxMs    *int64                 `json:"time_max_ms"`
	DistanceMaxM *float64               `json:"distance_max_m"`
}

type stayRegionsRequest struct {
	StayPoints         []models.StayPoint `json:"staypoints" binding:"required"`
	DistanceThresholdM *float64           `json:"distance_threshold_m"`
	AccuracyAware      *bool              `json:"accuracy_aware"`
	PerDay             bool               `json:"per_day"`
}

// regionDTO is the wire form of a stay region
type regionDTO struct {
	Lat         float64         `json:"lat"`
	Lng         float64         `json:"lng"`
	TStart      time.Time       `json:"t_start"`
	TStop       time.Time       `json:"t_stop"`
	AccuracyM   float64         `json:"accuracy_m"`
	Timezone    string          `json:"timezone,omitempty"`
	TopLeft     models.GeoPoint `json:"top_left"`
	BottomRight models.GeoPoint `json:"bottom_right"`
	AreaM2      float64         `json:"area_m2"`
	Label       string          `json:"label,omitempty"`
	StayPoints  []uuid.UUID     `json:"stay_points,omitempty"`
}

func newRegionDTO(r models.StayRegion, label string) regionDTO {
	return regionDTO{
		Lat:         r.Lat,
		Lng:         r.Lng,
		TStart:      r.TStart,
		TStop:       r.TStop,
		AccuracyM:   r.AccuracyM,
		Timezone:    r.Timezone,
		TopLeft:     r.TopLeft(),
		BottomRight: r.BottomRight(),
		AreaM2:      spatial.BoundingBoxArea(r.Bounds),
		Label:       label,
		StayPoints:  r.StayPoints,
	}
}

type locationsRequest struct {
	UserID    string                 `json:"user_id" binding:"required"`
	Locations []models.LocationPoint `json:"locations" binding:"required"`
}

type placesRequest struct {
	Places []models.UserPlace `json:"places" binding:"required"`
}

// StayPoints handles POST /api/v1/staypoints
func (h *StayHandler) StayPoints(c *gin.Context) {
	var req stayPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	p := staypoints.DefaultParams()
	if req.TimeMinMs != nil {
		p.TimeMin = time.Duration(*req.TimeMinMs) * time.Millisecond
	}
	if req.TimeMaxMs != nil {
		p.TimeMax = time.Duration(*req.TimeMaxMs) * time.Millisecond
	}
	if req.DistanceMaxM != nil {
		p.DistanceMaxM = *req.DistanceMaxM
	}

	sps, err := h.service.StayPoints(req.Locations, p)
	if err != nil {
		respondError(c, err)
		return
	}
	if sps == nil {
		sps = []models.StayPoint{}
	}
	response.Success(c, gin.H{"staypoints": sps})
}

// StayRegions handles POST /api/v1/stayregions
func (h *StayHandler) StayRegions(c *gin.Context) {
	var req stayRegionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	p := regions.DefaultParams()
	if req.DistanceThresholdM != nil {
		p.DistanceThresholdM = *req.DistanceThresholdM
	}
	if req.AccuracyAware != nil {
		p.AccuracyAware = *req.AccuracyAware
	}

	found, err := h.service.StayRegions(req.StayPoints, p, req.PerDay)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]regionDTO, len(found))
	for i, r := range found {
		out[i] = newRegionDTO(r, "")
	}
	response.Success(c, gin.H{"stayregions": out})
}

// AddLocations handles POST /api/v1/locations
func (h *StayHandler) AddLocations(c *gin.Context) {
	var req locationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.service.AddLocations(c.Request.Context(), req.UserID, req.Locations); err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, gin.H{"user_id": req.UserID, "count": len(req.Locations)})
}

// AddPlaces handles POST /api/v1/places
func (h *StayHandler) AddPlaces(c *gin.Context) {
	var req placesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.service.AddPlaces(c.Request.Context(), req.Places); err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, gin.H{"count": len(req.Places)})
}

// Closest handles GET /api/v1/closest/:lat/:lng/:n
func (h *StayHandler) Closest(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Param("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Param("lng"), 64)
	n, errN := strconv.Atoi(c.Param("n"))
	if errLat != nil || errLng != nil || errN != nil {
		response.BadRequest(c, "lat, lng and n must be numbers")
		return
	}

	users, err := h.service.Closest(c.Request.Context(), lat, lng, n)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, users)
}
