package profiles

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	"github.com/jengzang/personal-context-builder/internal/analysis/routine"
	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/stats"
)

// SimpleBOWName is the registry name of the mean bag-of-words model.
const SimpleBOWName = "SimpleBOW"

// SimpleBOWAnalyzer averages the bag-of-words vectors of all the user's days.
type SimpleBOWAnalyzer struct {
	*analysis.BaseAnalyzer
}

// NewSimpleBOWAnalyzer creates a new mean bag-of-words analyzer
func NewSimpleBOWAnalyzer() analysis.Analyzer {
	return &SimpleBOWAnalyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(SimpleBOWName,
			"Mean of the daily bag-of-words vectors"),
	}
}

// Analyze vectorizes every day and returns the element-wise mean
func (a *SimpleBOWAnalyzer) Analyze(ctx context.Context, uc *analysis.UserContext) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := routine.NewBagOfWords(uc.Classifier).VectorizeDays(uc.Days)
	mean := stats.MeanVector(vectors)
	log.Debug().
		Str("analyzer", a.GetName()).
		Str("user_id", uc.UserID).
		Int("days", len(vectors)).
		Int("size", len(mean)).
		Msg("Mean vector computed")

	return &models.Profile{
		UserID:     uc.UserID,
		Model:      a.GetName(),
		Vector:     mean,
		ComputedAt: time.Now().UTC(),
	}, nil
}

// Register the analyzer
func init() {
	analysis.RegisterAnalyzer(SimpleBOWName, NewSimpleBOWAnalyzer)
}
