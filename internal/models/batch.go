package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchRun is the stored summary of one batch update.
type BatchRun struct {
	RunID      uuid.UUID  `json:"run_id" db:"run_id"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Succeeded  int        `json:"succeeded" db:"succeeded"`
	Failed     int        `json:"failed" db:"failed"`
}

// Done reports whether the run has finished.
func (r BatchRun) Done() bool {
	return r.FinishedAt != nil
}
