package analysis

import (
	"context"
	"sort"
	"sync"

	"github.com/jengzang/personal-context-builder/internal/models"
)

// Analyzer is the interface that all profile models must implement
type Analyzer interface {
	// Analyze builds the profile of the user described by uc
	Analyze(ctx context.Context, uc *UserContext) (*models.Profile, error)

	// GetName returns the name of the analyzer
	GetName() string

	// Description is a one line summary shown by the models endpoint
	Description() string
}

// Progress represents the progress of a batch run
type Progress struct {
	Processed int     // Number of users processed
	Total     int     // Total number of users to process
	Failed    int     // Number of users that failed
	Percent   float64 // Progress percentage (0-100)
	Message   string  // Optional progress message
}

// NewProgress computes the percentage from the counters.
func NewProgress(processed, total, failed int) Progress {
	percent := 0.0
	if total > 0 {
		percent = float64(processed) / float64(total) * 100.0
	}
	return Progress{
		Processed: processed,
		Total:     total,
		Failed:    failed,
		Percent:   percent,
	}
}

// BaseAnalyzer provides common functionality for all analyzers
type BaseAnalyzer struct {
	Name string
	Doc  string
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(name, doc string) *BaseAnalyzer {
	return &BaseAnalyzer{
		Name: name,
		Doc:  doc,
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// Description returns the analyzer summary
func (a *BaseAnalyzer) Description() string {
	return a.Doc
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func() Analyzer

var (
	registryMu       sync.RWMutex
	analyzerRegistry = make(map[string]AnalyzerFactory)
)

// RegisterAnalyzer registers an analyzer factory for a model name
func RegisterAnalyzer(name string, factory AnalyzerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	analyzerRegistry[name] = factory
}

// GetAnalyzer retrieves an analyzer instance for a model name
func GetAnalyzer(name string) Analyzer {
	registryMu.RLock()
	factory, ok := analyzerRegistry[name]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory()
}

// IsRegistered checks if a model name has an analyzer
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := analyzerRegistry[name]
	return ok
}

// AnalyzerNames returns the registered model names in sorted order
func AnalyzerNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(analyzerRegistry))
	for name := range analyzerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
