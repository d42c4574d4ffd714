package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coloradocovid/covid-data-etl/internal/domain"
)

// Identifiers are interpolated into SQL, so everything is checked against
// these allowlists first. Bind parameters cannot carry column names.
var allowedTables = map[string]bool{
	"cases":    true,
	"vaccines": true,
}

var allowedFields = map[string]map[string]bool{
	"cases": {
		"reporting_date":         true,
		"positive":               true,
		"hospitalized_currently": true,
		"total_hospitalized":     true,
		"death_confirmed":        true,
		"tested":                 true,
		"positive_increase":      true,
		"death_increase":         true,
		"hospitalized_increase":  true,
		"tested_increase":        true,
	},
	"vaccines": {
		"reporting_date":          true,
		"daily_qty":               true,
		"daily_cumulative":        true,
		"one_dose_increase":       true,
		"one_dose_total":          true,
		"two_doses_increase":      true,
		"two_doses_total":         true,
		"daily_pfizer":            true,
		"daily_moderna":           true,
		"daily_janssen":           true,
		"pfizer_total":            true,
		"moderna_total":           true,
		"janssen_total":           true,
		"distributed_increase":    true,
		"distributed_total":       true,
		"total_vaccine_providers": true,
	},
}

func checkIdentifiers(table string, fields []string) error {
	if !allowedTables[table] {
		return fmt.Errorf("unknown table %q", table)
	}
	for _, f := range fields {
		if !allowedFields[table][f] {
			return fmt.Errorf("unknown field %q in table %q", f, table)
		}
	}
	return nil
}

// LatestReportingDate returns the most recent reporting_date in table. The
// second return value is false when the table is empty.
func (d *DB) LatestReportingDate(ctx context.Context, table string) (time.Time, bool, error) {
	if err := checkIdentifiers(table, nil); err != nil {
		return time.Time{}, false, err
	}

	var latest sql.NullTime
	query := fmt.Sprintf(`SELECT MAX(reporting_date) FROM %s`, table)
	if err := d.conn.QueryRowContext(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("latest reporting date for %s: %w", table, err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time.UTC(), true, nil
}

// History returns the selected fields for every row in table, ordered by
// reporting_date ascending. Values are normalized for JSON encoding: dates
// become YYYY-MM-DD strings and numerics become float64.
func (d *DB) History(ctx context.Context, table string, fields []string) ([]map[string]any, error) {
	if err := checkIdentifiers(table, fields); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY reporting_date ASC`,
		strings.Join(fields, ", "), table)
	return d.collectRows(ctx, query, fields)
}

// RollingAverage returns reporting_date plus a 7-day trailing average of
// field for every row in table, ordered ascending. Rows earlier than the
// seventh average over however many days exist so far.
func (d *DB) RollingAverage(ctx context.Context, table, field string) ([]map[string]any, error) {
	if err := checkIdentifiers(table, []string{field}); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT reporting_date,
		ROUND(AVG(%[1]s) OVER (ORDER BY reporting_date ROWS BETWEEN 6 PRECEDING AND CURRENT ROW)) AS %[1]s
	FROM %[2]s ORDER BY reporting_date ASC`, field, table)
	return d.collectRows(ctx, query, []string{"reporting_date", field})
}

func (d *DB) collectRows(ctx context.Context, query string, fields []string) ([]map[string]any, error) {
	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(fields))
		ptrs := make([]any, len(fields))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[f] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// normalizeValue coerces driver-specific scan results into the small set of
// types the JSON response uses.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(domain.ISODateLayout)
	case int64:
		return float64(val)
	case float64:
		return val
	case []byte:
		if f, err := strconv.ParseFloat(string(val), 64); err == nil {
			return f
		}
		return string(val)
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return val
	default:
		return val
	}
}

// LatestVaccineTotals returns the most recent vaccine record, used to seed
// deltas when a new day arrives from the legacy dashboard. The bool is
// false when the table is empty.
func (d *DB) LatestVaccineTotals(ctx context.Context) (domain.DailyVaccineRecord, bool, error) {
	const query = `SELECT reporting_date, daily_cumulative, one_dose_total,
		two_doses_total, pfizer_total, moderna_total, janssen_total,
		distributed_total
	FROM vaccines ORDER BY reporting_date DESC LIMIT 1`

	var (
		rec                        domain.DailyVaccineRecord
		dc, od, td, pf, mo, ja, di sql.NullInt64
	)
	err := d.conn.QueryRowContext(ctx, query).Scan(
		&rec.ReportingDate, &dc, &od, &td, &pf, &mo, &ja, &di)
	if err == sql.ErrNoRows {
		return domain.DailyVaccineRecord{}, false, nil
	}
	if err != nil {
		return domain.DailyVaccineRecord{}, false, fmt.Errorf("latest vaccine totals: %w", err)
	}

	rec.ReportingDate = rec.ReportingDate.UTC()
	rec.DailyCumulative = fromNullInt(dc)
	rec.OneDoseTotal = fromNullInt(od)
	rec.TwoDosesTotal = fromNullInt(td)
	rec.PfizerTotal = fromNullInt(pf)
	rec.ModernaTotal = fromNullInt(mo)
	rec.JanssenTotal = fromNullInt(ja)
	rec.DistributedTotal = fromNullInt(di)
	return rec, true, nil
}

// CaseOnDate returns the case record for one reporting date. The bool is
// false when no row exists for that date.
func (d *DB) CaseOnDate(ctx context.Context, day time.Time) (domain.DailyCaseRecord, bool, error) {
	const query = `SELECT reporting_date, positive, hospitalized_currently,
		total_hospitalized, death_confirmed, tested
	FROM cases WHERE reporting_date = $1`

	var (
		rec                domain.DailyCaseRecord
		po, hc, th, dc, te sql.NullInt64
	)
	err := d.conn.QueryRowContext(ctx, query, day).Scan(
		&rec.ReportingDate, &po, &hc, &th, &dc, &te)
	if err == sql.ErrNoRows {
		return domain.DailyCaseRecord{}, false, nil
	}
	if err != nil {
		return domain.DailyCaseRecord{}, false, fmt.Errorf("case on %s: %w", day.Format(domain.ISODateLayout), err)
	}

	rec.ReportingDate = rec.ReportingDate.UTC()
	rec.Positive = fromNullInt(po)
	rec.HospitalizedCurrently = fromNullInt(hc)
	rec.TotalHospitalized = fromNullInt(th)
	rec.DeathConfirmed = fromNullInt(dc)
	rec.Tested = fromNullInt(te)
	return rec, true, nil
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
