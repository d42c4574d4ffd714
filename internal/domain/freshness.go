package domain

import (
	"bytes"
	"time"
)

// ExpectedNextDate returns the reporting day after the latest stored one.
func ExpectedNextDate(latest time.Time) time.Time {
	return latest.AddDate(0, 0, 1)
}

// IsNewDay reports whether a raw payload appears to contain data for the
// expected next reporting day. It is a coarse substring check against the
// source's MM/DD/YYYY date format, tolerant of unknown payload shape: the
// payload is always fully re-parsed afterwards, so a match on an unrelated
// field only costs a wasted parse. A miss is the normal "not updated yet"
// outcome, not an error.
func IsNewDay(raw []byte, expected time.Time) bool {
	return bytes.Contains(raw, []byte(expected.Format(SourceDateLayout)))
}
