package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for date calculations. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// MountainToday returns the current reporting day for the upstream sources,
// which publish on a US Mountain Time day boundary. Approximated as a fixed
// UTC-7 offset, matching how the sources stamp their publish dates. The
// result is truncated to midnight UTC so it compares cleanly against stored
// reporting dates.
func MountainToday() time.Time {
	t := clock.Now().UTC().Add(-7 * time.Hour)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MountainYesterday returns the reporting day before MountainToday.
func MountainYesterday() time.Time {
	return MountainToday().AddDate(0, 0, -1)
}
