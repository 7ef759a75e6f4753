package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/personal-context-builder/internal/analysis/labels"
	"github.com/jengzang/personal-context-builder/internal/analysis/regions"
	"github.com/jengzang/personal-context-builder/internal/analysis/routine"
	"github.com/jengzang/personal-context-builder/internal/analysis/staypoints"
	"github.com/jengzang/personal-context-builder/internal/mapping"
	"github.com/jengzang/personal-context-builder/internal/models"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageLocations      Stage = "locations"
	StageStayPoints     Stage = "stay_points"
	StageStayRegions    Stage = "stay_regions"
	StageUserPlaces     Stage = "user_places"
	StageLabelledRegion Stage = "labelled_stay_regions"
)

// Sentinel causes of a StageError.
var (
	ErrNoLocations       = errors.New("no locations")
	ErrNoStayPoints      = errors.New("insufficient dwell data")
	ErrNoStayRegions     = errors.New("no recurring locations found")
	ErrNoUserPlaces      = errors.New("no user places")
	ErrNoLabelledRegions = errors.New("no ground-truth labels applicable")
)

// StageError reports that a user's data ran out at some stage of the pipeline.
// It is scoped to one user; batch callers log it and move on.
type StageError struct {
	UserID string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v for user %s", e.Err, e.UserID)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline holds the parameters of every stage.
type Pipeline struct {
	StayPoints staypoints.Params
	Regions    regions.Params
	// PerDay clusters each calendar day on its own.
	PerDay bool
	Grid   routine.DayGrid
	Table  *mapping.Table
}

// DefaultPipeline uses the default parameters of every stage.
func DefaultPipeline(table *mapping.Table) Pipeline {
	return Pipeline{
		StayPoints: staypoints.DefaultParams(),
		Regions:    regions.DefaultParams(),
		Grid:       routine.DefaultDayGrid(),
		Table:      table,
	}
}

// UserContext is everything the profile models need about one user.
type UserContext struct {
	UserID     string
	Locations  []models.LocationPoint
	StayPoints []models.StayPoint
	Regions    []models.StayRegion
	Labelled   []models.LabelledStayRegion
	Unlabelled []models.StayRegion
	Days       []models.Day
	Weekdays   map[time.Weekday][]models.Day
	Classifier *routine.Classifier
}

// StayRegions runs extraction and clustering only.
func (p Pipeline) StayRegions(locations []models.LocationPoint) ([]models.StayPoint, []models.StayRegion) {
	sps := staypoints.Extract(locations, p.StayPoints)
	if p.PerDay {
		return sps, regions.ClusterPerDay(sps, p.Regions)
	}
	return sps, regions.Cluster(sps, p.Regions)
}

// Prepare runs every stage for one user and stops at the first stage that
// produces nothing.
func (p Pipeline) Prepare(userID string, locations []models.LocationPoint, places []models.UserPlace) (*UserContext, error) {
	fail := func(stage Stage, err error) (*UserContext, error) {
		return nil, &StageError{UserID: userID, Stage: stage, Err: err}
	}

	if len(locations) == 0 {
		return fail(StageLocations, ErrNoLocations)
	}
	sps, found := p.StayRegions(locations)
	if len(sps) == 0 {
		return fail(StageStayPoints, ErrNoStayPoints)
	}
	if len(found) == 0 {
		return fail(StageStayRegions, ErrNoStayRegions)
	}
	if len(places) == 0 {
		return fail(StageUserPlaces, ErrNoUserPlaces)
	}
	labelled, unlabelled := labels.Labelize(found, places)
	if len(labelled) == 0 {
		return fail(StageLabelledRegion, ErrNoLabelledRegions)
	}

	days := routine.GroupByDays(locations, p.Grid)
	return &UserContext{
		UserID:     userID,
		Locations:  locations,
		StayPoints: sps,
		Regions:    found,
		Labelled:   labelled,
		Unlabelled: unlabelled,
		Days:       days,
		Weekdays:   routine.IndexPerWeekday(days),
		Classifier: routine.NewClassifier(labelled, unlabelled, p.Table),
	}, nil
}
