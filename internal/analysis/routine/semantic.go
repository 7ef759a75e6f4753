package routine

import (
	"sort"
	"time"

	"github.com/jengzang/personal-context-builder/internal/models"
)

// IndexPerWeekday groups days by the weekday of their middle slot.
// Empty days are skipped.
func IndexPerWeekday(days []models.Day) map[time.Weekday][]models.Day {
	indexed := make(map[time.Weekday][]models.Day)
	for _, day := range days {
		if len(day) == 0 {
			continue
		}
		weekday := day[len(day)/2].Time.Weekday()
		indexed[weekday] = append(indexed[weekday], day)
	}
	return indexed
}

// AggregateSemanticRoutine counts the codes of every slot per weekday and
// normalizes each (weekday, slot) distribution to sum to 1.
func AggregateSemanticRoutine(indexed map[time.Weekday][]models.Day, c *Classifier) models.SemanticRoutine {
	counts := make(map[time.Weekday]map[string]map[int]int)
	for weekday, days := range indexed {
		for _, day := range days {
			for _, loc := range day {
				code, _ := c.Classify(loc)
				slot := loc.Time.Format(models.SlotTimeLayout)
				if counts[weekday] == nil {
					counts[weekday] = make(map[string]map[int]int)
				}
				if counts[weekday][slot] == nil {
					counts[weekday][slot] = make(map[int]int)
				}
				counts[weekday][slot][code]++
			}
		}
	}

	routine := make(models.SemanticRoutine, len(counts))
	for weekday, slots := range counts {
		routine[weekday] = make(map[string]map[int]float64, len(slots))
		for slot, codes := range slots {
			total := 0
			for _, n := range codes {
				total += n
			}
			dist := make(map[int]float64, len(codes))
			for code, n := range codes {
				dist[code] = float64(n) / float64(total)
			}
			routine[weekday][slot] = dist
		}
	}
	return routine
}

// Transition is the slot at which a code starts or stops being the most
// probable one on a weekday.
type Transition struct {
	Slot  string
	Score float64
}

// Entering returns the first slot of the weekday where code becomes the
// most probable code.
func Entering(r models.SemanticRoutine, weekday time.Weekday, code int) (Transition, bool) {
	slots, tops := topCodes(r, weekday)
	for i, slot := range slots {
		if tops[i] != code {
			continue
		}
		if i == 0 || tops[i-1] != code {
			return Transition{Slot: slot, Score: r[weekday][slot][code]}, true
		}
	}
	return Transition{}, false
}

// Leaving returns the last slot of the weekday where code stops being the
// most probable code.
func Leaving(r models.SemanticRoutine, weekday time.Weekday, code int) (Transition, bool) {
	slots, tops := topCodes(r, weekday)
	for i := len(slots) - 1; i >= 0; i-- {
		if tops[i] != code {
			continue
		}
		if i == len(slots)-1 || tops[i+1] != code {
			return Transition{Slot: slots[i], Score: r[weekday][slots[i]][code]}, true
		}
	}
	return Transition{}, false
}

// topCodes returns the slots of a weekday in time order and the most
// probable code of each. Ties go to the smallest code.
func topCodes(r models.SemanticRoutine, weekday time.Weekday) ([]string, []int) {
	day := r[weekday]
	slots := make([]string, 0, len(day))
	for slot := range day {
		slots = append(slots, slot)
	}
	// "HH:MM:SS" sorts chronologically
	sort.Strings(slots)

	tops := make([]int, len(slots))
	for i, slot := range slots {
		best, bestScore := -1, -1.0
		for code, score := range day[slot] {
			if score > bestScore || (score == bestScore && code < best) {
				best, bestScore = code, score
			}
		}
		tops[i] = best
	}
	return slots, tops
}

// SlotKeys returns the slot keys of a day in order.
func SlotKeys(day models.Day) []string {
	keys := make([]string, len(day))
	for i, loc := range day {
		keys[i] = loc.Time.Format(models.SlotTimeLayout)
	}
	return keys
}

// Flatten lays a routine out as one vector of 7 x len(slots) x width
// probabilities, Sunday first. Missing entries are zero.
func Flatten(r models.SemanticRoutine, slots []string, width int) []float64 {
	vector := make([]float64, 7*len(slots)*width)
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		for i, slot := range slots {
			base := (int(weekday)*len(slots) + i) * width
			for code, score := range r.Slot(weekday, slot) {
				if code >= 0 && code < width {
					vector[base+code] = score
				}
			}
		}
	}
	return vector
}
