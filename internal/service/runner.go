package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	"github.com/jengzang/personal-context-builder/internal/models"
)

// Computer computes and stores the profiles of one user
type Computer interface {
	Users(ctx context.Context) ([]string, error)
	ComputeUser(ctx context.Context, userID string, names []string) ([]*models.Profile, error)
}

// BatchReport is the outcome of one batch update
type BatchReport struct {
	RunID     uuid.UUID        `json:"run_id"`
	Succeeded []string         `json:"succeeded"`
	Failed    map[string]error `json:"-"`
}

// Errors renders the failures for JSON responses
func (r *BatchReport) Errors() map[string]string {
	out := make(map[string]string, len(r.Failed))
	for user, err := range r.Failed {
		out[user] = err.Error()
	}
	return out
}

// Progress summarizes the report
func (r *BatchReport) Progress(total int) analysis.Progress {
	return analysis.NewProgress(len(r.Succeeded)+len(r.Failed), total, len(r.Failed))
}

// Runner fans users out over a fixed pool of workers
type Runner struct {
	computer Computer
	batches  BatchStore
	workers  int
}

// NewRunner constructs a runner. batches may be nil.
func NewRunner(computer Computer, batches BatchStore, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{computer: computer, batches: batches, workers: workers}
}

// Run computes the named models for users, or for every user with stored
// locations when users is empty. A user's failure is logged and recorded in
// the report; it never stops the batch. Cancelling ctx stops dispatching.
func (r *Runner) Run(ctx context.Context, users []string, names []string) (*BatchReport, error) {
	if len(users) == 0 {
		var err error
		users, err = r.computer.Users(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
	}

	report := &BatchReport{
		RunID:     uuid.New(),
		Succeeded: []string{},
		Failed:    make(map[string]error),
	}
	started := time.Now().UTC()
	if r.batches != nil {
		if err := r.batches.Start(ctx, report.RunID, started); err != nil {
			return nil, err
		}
	}

	logger := log.With().Str("run_id", report.RunID.String()).Logger()
	logger.Info().Int("users", len(users)).Int("workers", r.workers).Msg("batch started")

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		queue = make(chan string)
	)

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range queue {
				_, err := r.computer.ComputeUser(ctx, user, names)

				mu.Lock()
				if err != nil {
					report.Failed[user] = err
				} else {
					report.Succeeded = append(report.Succeeded, user)
				}
				mu.Unlock()

				if err != nil {
					logger.Warn().Err(err).Str("user_id", user).Msg("user skipped")
				}
			}
		}()
	}

dispatch:
	for _, user := range users {
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- user:
		}
	}
	close(queue)
	wg.Wait()

	progress := report.Progress(len(users))
	logger.Info().
		Int("succeeded", len(report.Succeeded)).
		Int("failed", progress.Failed).
		Float64("percent", progress.Percent).
		Msg("batch finished")

	if r.batches != nil {
		// the run is recorded even when ctx was cancelled
		if err := r.batches.Finish(context.WithoutCancel(ctx), report.RunID, len(report.Succeeded), len(report.Failed), time.Now().UTC()); err != nil {
			return report, err
		}
	}
	return report, ctx.Err()
}
