package models

import "time"

// SlotClass is the outcome of classifying one time slot against the regions.
type SlotClass int

const (
	SlotNoData SlotClass = iota
	SlotLabelledRegion
	SlotUnmappedLabelledRegion
	SlotUnlabelledRegion
	SlotUnknown
)

func (c SlotClass) String() string {
	switch c {
	case SlotNoData:
		return "no_data"
	case SlotLabelledRegion:
		return "labelled_region"
	case SlotUnmappedLabelledRegion:
		return "unknown_labelled_region"
	case SlotUnlabelledRegion:
		return "unknown_region"
	default:
		return "unknown"
	}
}

// SlotTimeLayout formats the slot key of a SemanticRoutine.
const SlotTimeLayout = "15:04:05"

// SemanticRoutine maps weekday -> slot start ("HH:MM:SS") -> region code -> probability.
// The probabilities of every (weekday, slot) pair sum to 1.
type SemanticRoutine map[time.Weekday]map[string]map[int]float64

// Slot returns the distribution for one weekday and slot, or nil.
func (r SemanticRoutine) Slot(weekday time.Weekday, slot string) map[int]float64 {
	if r == nil {
		return nil
	}
	return r[weekday][slot]
}

// Profile is the output of one profile model for one user.
type Profile struct {
	UserID     string          `json:"user_id" db:"user_id"`
	Model      string          `json:"model" db:"model"`
	Vector     []float64       `json:"vector,omitempty" db:"vector_json"`
	Routine    SemanticRoutine `json:"routine,omitempty"`
	ComputedAt time.Time       `json:"computed_at" db:"computed_at"`
}
