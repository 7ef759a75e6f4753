package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	"github.com/jengzang/personal-context-builder/internal/analysis/routine"
	"github.com/jengzang/personal-context-builder/internal/mapping"
	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/repository"
	"github.com/jengzang/personal-context-builder/internal/stats"
)

// Label describes a region code in API responses
type Label struct {
	Name          string   `json:"name"`
	Code          int      `json:"code"`
	SemanticClass string   `json:"semantic_class"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// LabelScore is one entry of a slot distribution
type LabelScore struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// SlotDistribution is the stored routine of a user at one weekday and slot
type SlotDistribution struct {
	UserID            string       `json:"user_id"`
	Weekday           string       `json:"weekday"`
	Slot              string       `json:"time"`
	LabelDistribution []LabelScore `json:"label_distribution"`
	Confidence        float64      `json:"confidence"`
}

// TransitionResult is the slot at which a label is entered or left
type TransitionResult struct {
	UserID         string  `json:"user_id"`
	Weekday        string  `json:"weekday"`
	TransitionTime string  `json:"transition_time"`
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
}

// Similarity is the cosine similarity of two users' profiles
type Similarity struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// RoutineService runs the pipeline for users and serves the stored results
type RoutineService struct {
	pipeline  analysis.Pipeline
	locations LocationStore
	places    PlaceStore
	profiles  ProfileStore
	routines  RoutineStore
}

// NewRoutineService creates a new routine service
func NewRoutineService(pipeline analysis.Pipeline, locations LocationStore, places PlaceStore, profiles ProfileStore, routines RoutineStore) *RoutineService {
	return &RoutineService{
		pipeline:  pipeline,
		locations: locations,
		places:    places,
		profiles:  profiles,
		routines:  routines,
	}
}

// Table returns the mapping table of the pipeline
func (s *RoutineService) Table() *mapping.Table {
	return s.pipeline.Table
}

// Users returns every user with stored locations
func (s *RoutineService) Users(ctx context.Context) ([]string, error) {
	return s.locations.Users(ctx)
}

// Prepare loads the data of a user and runs every pipeline stage
func (s *RoutineService) Prepare(ctx context.Context, userID string) (*analysis.UserContext, error) {
	locations, err := s.locations.List(ctx, repository.LocationFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	places, err := s.places.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load places: %w", err)
	}
	return s.pipeline.Prepare(userID, locations, places)
}

// ComputeUser runs the named models for a user and stores their profiles.
// No names means every registered model.
func (s *RoutineService) ComputeUser(ctx context.Context, userID string, names []string) ([]*models.Profile, error) {
	names, err := resolveModels(names)
	if err != nil {
		return nil, err
	}

	uc, err := s.Prepare(ctx, userID)
	if err != nil {
		return nil, err
	}

	profiles := make([]*models.Profile, 0, len(names))
	for _, name := range names {
		profile, err := analysis.GetAnalyzer(name).Analyze(ctx, uc)
		if err != nil {
			return nil, fmt.Errorf("failed to run %s: %w", name, err)
		}
		if err := s.profiles.Save(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to store %s profile: %w", name, err)
		}
		if profile.Routine != nil {
			if err := s.routines.Save(ctx, userID, profile.Routine, profile.ComputedAt); err != nil {
				return nil, fmt.Errorf("failed to store routine: %w", err)
			}
		}
		profiles = append(profiles, profile)
	}

	log.Info().
		Str("user_id", userID).
		Strs("models", names).
		Int("days", len(uc.Days)).
		Int("labelled_regions", len(uc.Labelled)).
		Msg("profiles computed")
	return profiles, nil
}

// Profiles returns the stored vectors of one user per model. It fails with
// repository.ErrNotFound when the user has none.
func (s *RoutineService) Profiles(ctx context.Context, userID string, names []string) (map[string][]float64, error) {
	names, err := resolveModels(names)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]float64, len(names))
	for _, name := range names {
		p, err := s.profiles.Get(ctx, name, userID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[name] = p.Vector
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("profiles of %s: %w", userID, repository.ErrNotFound)
	}
	return result, nil
}

// AllProfiles returns model -> user -> vector for the named models
func (s *RoutineService) AllProfiles(ctx context.Context, names []string) (map[string]map[string][]float64, error) {
	names, err := resolveModels(names)
	if err != nil {
		return nil, err
	}

	result := make(map[string]map[string][]float64, len(names))
	for _, name := range names {
		profiles, err := s.profiles.ListByModel(ctx, name)
		if err != nil {
			return nil, err
		}
		users := make(map[string][]float64, len(profiles))
		for _, p := range profiles {
			users[p.UserID] = p.Vector
		}
		result[name] = users
	}
	return result, nil
}

// Compare returns the cosine similarity between the profile of userID and
// the profiles of others (every stored user when empty), best first
func (s *RoutineService) Compare(ctx context.Context, userID, model string, others []string) ([]Similarity, error) {
	if _, err := resolveModels([]string{model}); err != nil {
		return nil, err
	}

	base, err := s.profiles.Get(ctx, model, userID)
	if err != nil {
		return nil, err
	}

	var candidates []*models.Profile
	if len(others) == 0 {
		candidates, err = s.profiles.ListByModel(ctx, model)
		if err != nil {
			return nil, err
		}
	} else {
		for _, other := range others {
			p, err := s.profiles.Get(ctx, model, other)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, p)
		}
	}

	result := make([]Similarity, 0, len(candidates))
	for _, p := range candidates {
		if p.UserID == userID {
			continue
		}
		result = append(result, Similarity{UserID: p.UserID, Score: stats.CosineSimilarity(base.Vector, p.Vector)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// SemanticSlot returns the stored distribution of a weekday and slot with
// the codes resolved to labels, most probable first
func (s *RoutineService) SemanticSlot(ctx context.Context, userID string, weekday time.Weekday, slot string) (*SlotDistribution, error) {
	dist, err := s.routines.Slot(ctx, userID, weekday, slot)
	if err != nil {
		return nil, err
	}
	places, err := s.places.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load places: %w", err)
	}

	scores := make([]LabelScore, 0, len(dist))
	for code, score := range dist {
		scores = append(scores, LabelScore{Label: s.describe(code, places), Score: score})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Label.Code < scores[j].Label.Code
	})

	return &SlotDistribution{
		UserID:            userID,
		Weekday:           weekday.String(),
		Slot:              slot,
		LabelDistribution: scores,
		Confidence:        scores[0].Score,
	}, nil
}

// Transition returns the slot of a weekday where label becomes (entering)
// or stops being (leaving) the most probable code
func (s *RoutineService) Transition(ctx context.Context, userID string, weekday time.Weekday, label string, entering bool) (*TransitionResult, error) {
	code, ok := s.pipeline.Table.Code(label)
	if !ok {
		return nil, fmt.Errorf("%w: unknown label %q", ErrValidation, label)
	}

	r, err := s.routines.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	find := routine.Leaving
	if entering {
		find = routine.Entering
	}
	t, ok := find(r, weekday, code)
	if !ok {
		return nil, fmt.Errorf("%s never dominates on %s for %s: %w", label, weekday, userID, repository.ErrNotFound)
	}

	return &TransitionResult{
		UserID:         userID,
		Weekday:        weekday.String(),
		TransitionTime: t.Slot,
		Label:          label,
		Confidence:     t.Score,
	}, nil
}

// Corpus returns the days of a user as token sentences
func (s *RoutineService) Corpus(ctx context.Context, userID string) ([][]string, error) {
	uc, err := s.Prepare(ctx, userID)
	if err != nil {
		return nil, err
	}
	return routine.NewCorpus(uc.Classifier).VectorizeDays(uc.Days), nil
}

func (s *RoutineService) describe(code int, places []models.UserPlace) Label {
	table := s.pipeline.Table
	label := Label{Code: code, SemanticClass: semanticClass(table, code).String()}
	if names := table.LabelsFor(code); len(names) > 0 {
		label.Name = names[0]
	}
	for _, p := range places {
		if c, _ := table.LabelCode(p.Label); c == code {
			lat, lng := p.Lat, p.Lng
			label.Latitude, label.Longitude = &lat, &lng
			break
		}
	}
	return label
}

func semanticClass(table *mapping.Table, code int) models.SlotClass {
	reserved := map[string]models.SlotClass{
		mapping.NoData:                models.SlotNoData,
		mapping.Unknown:               models.SlotUnknown,
		mapping.UnknownRegion:         models.SlotUnlabelledRegion,
		mapping.UnknownLabelledRegion: models.SlotUnmappedLabelledRegion,
	}
	for name, class := range reserved {
		if c, ok := table.Code(name); ok && c == code {
			return class
		}
	}
	return models.SlotLabelledRegion
}

func resolveModels(names []string) ([]string, error) {
	if len(names) == 0 {
		return analysis.AnalyzerNames(), nil
	}
	for _, name := range names {
		if !analysis.IsRegistered(name) {
			return nil, fmt.Errorf("%w: unknown model %q", ErrValidation, name)
		}
	}
	return names, nil
}
