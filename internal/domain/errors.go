package domain

import "fmt"

// ParseError means a payload did not match the shape the normalizer expects.
// The anchor-not-found case from the HTML dashboard is fatal for a run;
// unknown metric keys are not (they are logged and skipped instead).
type ParseError struct {
	Source string // which payload failed, e.g. "case geojson", "vaccine dashboard html"
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
