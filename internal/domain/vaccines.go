package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

// vaccineFeatureCollection mirrors the ArcGIS GeoJSON vaccine feed: a flat
// pivot table of {metric, type, category, section, date, publish_date,
// value} rows, one feature per cell.
type vaccineFeatureCollection struct {
	Features []struct {
		Properties vaccineRow `json:"properties"`
	} `json:"features"`
}

type vaccineRow struct {
	Metric      string   `json:"metric"`
	Type        string   `json:"type"`
	Category    string   `json:"category"`
	Section     string   `json:"section"`
	Date        string   `json:"date"`         // vaccination date, MM/DD/YYYY
	PublishDate string   `json:"publish_date"` // dashboard publish date, MM/DD/YYYY
	Value       *float64 `json:"value"`
}

// vaccineField identifies the canonical destination of one source metric.
// The upstream metric vocabulary changes without notice, so translation goes
// through a closed set of variants plus an explicit unknown: unrecognized
// keys are reported to the caller and skipped rather than dropped silently
// or crashing the run.
type vaccineField int

const (
	fieldUnknown vaccineField = iota
	fieldDailyCumulative
	fieldDosesAdministered // preferred over fieldDailyCumulative when both appear
	fieldDailyDiscard      // "All COVID Vaccines Daily": not what it says, never used
	fieldModernaDaily
	fieldPfizerDaily
	fieldJanssenDaily
	fieldModernaTotal
	fieldPfizerTotal
	fieldJanssenTotal
	fieldOneDoseTotal
	fieldTwoDosesTotal
	fieldDistributedTotal
	fieldTotalProviders
)

// vaccineFieldByKey translates merged source keys (type-qualified where the
// row carries a type) to canonical fields.
var vaccineFieldByKey = map[string]vaccineField{
	"All COVID Vaccines Cumulative Daily": fieldDailyCumulative,
	"All COVID Vaccines Daily":            fieldDailyDiscard,
	"Moderna Cumulative Daily":            fieldModernaTotal,
	"Pfizer Cumulative Daily":             fieldPfizerTotal,
	"Janssen Cumulative Daily":            fieldJanssenTotal,
	"Moderna Daily":                       fieldModernaDaily,
	"Pfizer Daily":                        fieldPfizerDaily,
	"Janssen Daily":                       fieldJanssenDaily,
	"People Immunized with One Dose":      fieldOneDoseTotal,
	"People Immunized with Two Doses":     fieldTwoDosesTotal,
	"Cumulative Doses Administered":       fieldDosesAdministered,
	"Cumulative Doses Distributed":        fieldDistributedTotal,
	"Total Vaccine Providers":             fieldTotalProviders,
}

// NormalizeVaccines converts a raw vaccine pivot payload into one record per
// vaccination date, sorted ascending. newDay is the reporting day being
// ingested: administration rows are kept only from that publish batch, while
// statewide cumulative rows are attributed to their own publish date.
//
// Unrecognized metric keys are returned (deduplicated, sorted) so the caller
// can log and count them; the upstream vocabulary is historically unstable
// and silent drops have hidden data loss before.
//
// Increase fields are left nil; apply AddVaccineIncreases afterwards.
func NormalizeVaccines(raw []byte, newDay time.Time) ([]DailyVaccineRecord, []string, error) {
	var fc vaccineFeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, nil, &ParseError{Source: "vaccine geojson", Reason: "not a feature collection", Err: err}
	}

	newDayStr := newDay.Format(SourceDateLayout)

	// Merge both row families into one mapping: date → source key → value.
	merged := map[string]map[string]int{}
	put := func(date, key string, value *float64) {
		if date == "" || value == nil {
			return
		}
		if merged[date] == nil {
			merged[date] = map[string]int{}
		}
		merged[date][key] = int(math.Round(*value))
	}

	for _, f := range fc.Features {
		row := f.Properties
		switch {
		case row.Category == "Administration" &&
			row.PublishDate == newDayStr &&
			row.Metric != "Weekly" &&
			row.Type != "Unspecified COVID Vaccine":
			key := row.Metric
			if row.Type != "" {
				key = row.Type + " " + row.Metric
			}
			put(row.Date, key, row.Value)

		case row.Category == "Cumulative counts to date" && row.Section == "State Data":
			// Statewide totals carry no vaccination date; they belong to
			// the day they were published.
			put(row.PublishDate, row.Metric, row.Value)
		}
	}

	unknownSet := map[string]struct{}{}
	records := make([]DailyVaccineRecord, 0, len(merged))

	for dateStr, fields := range merged {
		date, err := time.Parse(SourceDateLayout, dateStr)
		if err != nil {
			continue
		}

		rec := DailyVaccineRecord{ReportingDate: date}
		var cumulativeDaily, dosesAdministered *int

		for key, value := range fields {
			if strings.Contains(key, "Weekly") {
				continue
			}
			v := value
			switch vaccineFieldByKey[key] {
			case fieldDailyCumulative:
				cumulativeDaily = &v
			case fieldDosesAdministered:
				dosesAdministered = &v
			case fieldDailyDiscard:
				// Confusing non-representative metric; never used.
			case fieldModernaDaily:
				rec.DailyModerna = &v
			case fieldPfizerDaily:
				rec.DailyPfizer = &v
			case fieldJanssenDaily:
				rec.DailyJanssen = &v
			case fieldModernaTotal:
				rec.ModernaTotal = &v
			case fieldPfizerTotal:
				rec.PfizerTotal = &v
			case fieldJanssenTotal:
				rec.JanssenTotal = &v
			case fieldOneDoseTotal:
				rec.OneDoseTotal = &v
			case fieldTwoDosesTotal:
				rec.TwoDosesTotal = &v
			case fieldDistributedTotal:
				rec.DistributedTotal = &v
			case fieldTotalProviders:
				rec.TotalVaccineProviders = &v
			default:
				unknownSet[key] = struct{}{}
			}
		}

		// Two source keys describe the same cumulative-administered series;
		// "Cumulative Doses Administered" is authoritative when both appear.
		rec.DailyCumulative = cumulativeDaily
		if dosesAdministered != nil {
			rec.DailyCumulative = dosesAdministered
		}

		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ReportingDate.Before(records[j].ReportingDate)
	})

	unknown := make([]string, 0, len(unknownSet))
	for key := range unknownSet {
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)

	return records, unknown, nil
}
