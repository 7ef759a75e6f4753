// Package routine resamples location streams onto daily time slots and
// encodes them against labelled and unlabelled stay regions.
package routine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/personal-context-builder/internal/models"
	"github.com/jengzang/personal-context-builder/internal/stats"
)

// DayGrid describes the slots of one day.
type DayGrid struct {
	// Start is the offset of the first slot from midnight.
	Start time.Duration
	// Span is the offset of the last slot from Start.
	Span time.Duration
	// Slot is the slot width.
	Slot time.Duration
	// Location decides calendar days. Nil keeps each timestamp's own zone.
	Location *time.Location
}

// DefaultDayGrid starts at midnight and spans 23.5 hours in 30 minute slots.
func DefaultDayGrid() DayGrid {
	return DayGrid{
		Start: 0,
		Span:  23*time.Hour + 30*time.Minute,
		Slot:  30 * time.Minute,
	}
}

// ParseDayGrid builds a grid from a "HH:MM:SS" start, a span in hours and a
// slot frequency such as "30T", "30min", "1H" or any Go duration.
func ParseDayGrid(start string, spanHours float64, freq string) (DayGrid, error) {
	offset, err := parseClock(start)
	if err != nil {
		return DayGrid{}, err
	}
	slot, err := ParseFrequency(freq)
	if err != nil {
		return DayGrid{}, err
	}
	if spanHours < 0 {
		return DayGrid{}, fmt.Errorf("negative day span %v", spanHours)
	}
	return DayGrid{
		Start: offset,
		Span:  time.Duration(spanHours * float64(time.Hour)),
		Slot:  slot,
	}, nil
}

// Slots is the number of slots per day. The grid includes its end point.
func (g DayGrid) Slots() int {
	if g.Slot <= 0 {
		return 0
	}
	return int(g.Span/g.Slot) + 1
}

// ParseFrequency reads pandas style offsets ("30T", "30min", "2H", "15S")
// and falls back to time.ParseDuration.
func ParseFrequency(freq string) (time.Duration, error) {
	freq = strings.TrimSpace(freq)
	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"min", time.Minute},
		{"T", time.Minute},
		{"H", time.Hour},
		{"S", time.Second},
	}
	for _, u := range units {
		if !strings.HasSuffix(freq, u.suffix) {
			continue
		}
		n := strings.TrimSuffix(freq, u.suffix)
		if n == "" {
			return u.unit, nil
		}
		v, err := strconv.Atoi(n)
		if err == nil && v > 0 {
			return time.Duration(v) * u.unit, nil
		}
	}

	d, err := time.ParseDuration(freq)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid slot frequency %q", freq)
	}
	return d, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse(time.TimeOnly, s)
	if err != nil {
		return 0, fmt.Errorf("invalid day start %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// GroupByDays splits locations by calendar day and resamples every day onto
// the grid. Each slot holds the median of the fixes falling in
// [slot, slot+Slot) stamped at the slot start, or a missing placeholder.
// Days are returned in ascending order and all have g.Slots() entries.
func GroupByDays(locations []models.LocationPoint, g DayGrid) []models.Day {
	n := g.Slots()
	if n == 0 || len(locations) == 0 {
		return nil
	}

	type bucket struct {
		lat, lng, acc []float64
	}
	type dayBuckets struct {
		midnight time.Time
		buckets  []bucket
	}
	days := make(map[string]*dayBuckets)

	for _, l := range locations {
		t := l.Time
		if g.Location != nil {
			t = t.In(g.Location)
		}
		y, m, d := t.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		dayStart := midnight.Add(g.Start)

		key := midnight.Format(time.DateOnly)
		db, ok := days[key]
		if !ok {
			db = &dayBuckets{midnight: midnight, buckets: make([]bucket, n)}
			days[key] = db
		}
		buckets := db.buckets

		offset := t.Sub(dayStart)
		if offset < 0 {
			continue
		}
		idx := int(offset / g.Slot)
		if idx >= n {
			continue
		}
		buckets[idx].lat = append(buckets[idx].lat, l.Lat)
		buckets[idx].lng = append(buckets[idx].lng, l.Lng)
		buckets[idx].acc = append(buckets[idx].acc, l.AccuracyM)
	}

	ordered := make([]*dayBuckets, 0, len(days))
	for _, db := range days {
		ordered = append(ordered, db)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].midnight.Before(ordered[j].midnight) })

	result := make([]models.Day, 0, len(ordered))
	for _, db := range ordered {
		buckets := db.buckets
		dayStart := db.midnight.Add(g.Start)
		day := make(models.Day, n)
		for k, b := range buckets {
			slotTime := dayStart.Add(time.Duration(k) * g.Slot)
			if len(b.lat) == 0 {
				day[k] = models.MissingLocation(slotTime)
				continue
			}
			day[k] = models.NewLocationPoint(slotTime,
				stats.Median(b.lat), stats.Median(b.lng), stats.Median(b.acc))
		}
		result = append(result, day)
	}
	return result
}
