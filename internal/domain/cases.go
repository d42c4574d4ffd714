package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// caseFeatureCollection mirrors the ArcGIS GeoJSON case feed. Only the
// per-feature properties carry data; geometry is ignored.
type caseFeatureCollection struct {
	Features []struct {
		Properties caseProperties `json:"properties"`
	} `json:"features"`
}

// caseProperties holds one reporting day as published upstream. Field names
// follow the source schema, not ours.
type caseProperties struct {
	Date   string `json:"Date"` // MM/DD/YYYY, occasionally empty on malformed rows
	Cases  *int   `json:"Cases"`
	Tested *int   `json:"Tested"`
	Deaths *int   `json:"Deaths"`
	Hosp   *int   `json:"Hosp"`
}

// NormalizeCases converts a raw GeoJSON case payload into one record per
// reporting day, sorted ascending by date. Features with an empty or
// unparseable date are skipped (known malformed upstream entries). The
// output is stable: identical input yields identical records in identical
// order. Increase fields are left nil; apply AddCaseIncreases afterwards.
func NormalizeCases(raw []byte) ([]DailyCaseRecord, error) {
	var fc caseFeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, &ParseError{Source: "case geojson", Reason: "not a feature collection", Err: err}
	}

	days := make([]DailyCaseRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		props := f.Properties
		if props.Date == "" {
			continue
		}
		date, err := time.Parse(SourceDateLayout, props.Date)
		if err != nil {
			continue
		}
		days = append(days, DailyCaseRecord{
			ReportingDate:     date,
			Positive:          props.Cases,
			Tested:            props.Tested,
			DeathConfirmed:    props.Deaths,
			TotalHospitalized: props.Hosp,
		})
	}

	sort.SliceStable(days, func(i, j int) bool {
		return days[i].ReportingDate.Before(days[j].ReportingDate)
	})
	return days, nil
}

// backfillCaseDay mirrors the per-date state JSON used for manual backfill.
type backfillCaseDay struct {
	Date                  int  `json:"date"` // yyyymmdd as a number
	Positive              *int `json:"positive"`
	Tested                *int `json:"totalTestResults"`
	DeathConfirmed        *int `json:"deathConfirmed"`
	HospitalizedCurrently *int `json:"hospitalizedCurrently"`
	TotalHospitalized     *int `json:"hospitalizedCumulative"`
}

// NormalizeBackfillCase converts a single-day case payload from the
// covidtracking per-date endpoint into a record for the given reporting
// date. Upstream increase fields in the payload are deliberately ignored;
// increases are recomputed against the database at load time.
func NormalizeBackfillCase(raw []byte, date time.Time) (DailyCaseRecord, error) {
	var day backfillCaseDay
	if err := json.Unmarshal(raw, &day); err != nil {
		return DailyCaseRecord{}, &ParseError{Source: "backfill case json", Reason: "unexpected shape", Err: err}
	}
	return DailyCaseRecord{
		ReportingDate:         date,
		Positive:              day.Positive,
		Tested:                day.Tested,
		DeathConfirmed:        day.DeathConfirmed,
		HospitalizedCurrently: day.HospitalizedCurrently,
		TotalHospitalized:     day.TotalHospitalized,
	}, nil
}
