package repository

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when the requested row does not exist
var ErrNotFound = errors.New("not found")

// zones caches the locations resolved from stored zone names
var zones sync.Map

// toUnixMs and fromUnixMs convert the stored (ts, tz) pair.
func toUnixMs(t time.Time) (int64, string) {
	return t.UnixMilli(), t.Location().String()
}

func fromUnixMs(ms int64, tz string) time.Time {
	return time.UnixMilli(ms).In(zone(tz))
}

// zone resolves an IANA name. Names that cannot be loaded fall back to UTC.
func zone(name string) *time.Location {
	if name == "" || name == "UTC" {
		return time.UTC
	}
	if loc, ok := zones.Load(name); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.UTC
	}
	zones.Store(name, loc)
	return loc
}
