package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StayPoint is a contiguous dwell extracted from a run of locations.
// Only the stay point extractor builds them, always from at least two fixes.
type StayPoint struct {
	GeoPoint
	TStart    time.Time `json:"t_start" db:"t_start"`
	TStop     time.Time `json:"t_stop" db:"t_stop"`
	AccuracyM float64   `json:"accuracy_m" db:"accuracy_m"`
	Timezone  string    `json:"timezone,omitempty" db:"timezone"`
}

// Key is the canonical value identity of the stay point.
// Two stay points with equal keys are the same stay point.
func (s StayPoint) Key() string {
	var b strings.Builder
	b.WriteString("lat=")
	b.WriteString(strconv.FormatFloat(s.Lat, 'g', -1, 64))
	b.WriteString(" lng=")
	b.WriteString(strconv.FormatFloat(s.Lng, 'g', -1, 64))
	b.WriteString(" start=")
	b.WriteString(strconv.FormatInt(s.TStart.UnixNano(), 10))
	b.WriteString(" stop=")
	b.WriteString(strconv.FormatInt(s.TStop.UnixNano(), 10))
	b.WriteString(" acc=")
	b.WriteString(strconv.FormatFloat(s.AccuracyM, 'g', -1, 64))
	b.WriteString(" tz=")
	b.WriteString(s.Timezone)
	return b.String()
}

// ID is a name based UUID derived from Key, stable across runs.
func (s StayPoint) ID() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.Key()))
}

// Duration returns TStop - TStart.
func (s StayPoint) Duration() time.Duration {
	return s.TStop.Sub(s.TStart)
}
