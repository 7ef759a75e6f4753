// Package profiles holds the registered profile models.
package profiles

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	"github.com/jengzang/personal-context-builder/internal/analysis/routine"
	"github.com/jengzang/personal-context-builder/internal/models"
)

// SemanticHistName is the registry name of the semantic routine model.
const SemanticHistName = "SemanticModelHist"

// SemanticHistAnalyzer builds the per weekday, per slot distribution of region codes.
type SemanticHistAnalyzer struct {
	*analysis.BaseAnalyzer
}

// NewSemanticHistAnalyzer creates a new semantic routine analyzer
func NewSemanticHistAnalyzer() analysis.Analyzer {
	return &SemanticHistAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(SemanticHistName,
			"Histogram of labelled places for every weekday and time slot"),
	}
}

// Analyze aggregates the user's days into a semantic routine
func (a *SemanticHistAnalyzer) Analyze(ctx context.Context, uc *analysis.UserContext) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := routine.AggregateSemanticRoutine(uc.Weekdays, uc.Classifier)

	var vector []float64
	if len(uc.Days) > 0 {
		vector = routine.Flatten(r, routine.SlotKeys(uc.Days[0]), uc.Classifier.Table().Width())
	}
	log.Debug().
		Str("analyzer", a.GetName()).
		Str("user_id", uc.UserID).
		Int("weekdays", len(r)).
		Msg("Semantic routine computed")

	return &models.Profile{
		UserID:     uc.UserID,
		Model:      a.GetName(),
		Vector:     vector,
		Routine:    r,
		ComputedAt: time.Now().UTC(),
	}, nil
}

// Register the analyzer
func init() {
	analysis.RegisterAnalyzer(SemanticHistName, NewSemanticHistAnalyzer)
}
