package s3store

import (
	"time"

	"github.com/coloradocovid/covid-data-etl/internal/domain"
)

// Object keys follow {stage}_{dataset}_data/{YYYYMMDD}.{ext}. Raw vaccine
// artifacts carry the extension of whichever source produced them, since a
// run may fall back from the pivot feed to the dashboard page.

// RawCasesKey is the key for the unmodified case feed payload.
func RawCasesKey(day time.Time) string {
	return "raw_cases_data/" + day.Format(domain.KeyDateLayout) + ".json"
}

// CleanedCasesKey is the key for normalized case records.
func CleanedCasesKey(day time.Time) string {
	return "cleaned_cases_data/" + day.Format(domain.KeyDateLayout) + ".json"
}

// RawVaccineKey is the key for the unmodified vaccine payload. ext is
// "json" for the pivot feed and "html" for the dashboard page.
func RawVaccineKey(day time.Time, ext string) string {
	return "raw_vaccine_data/" + day.Format(domain.KeyDateLayout) + "." + ext
}

// CleanedVaccineKey is the key for normalized vaccine records.
func CleanedVaccineKey(day time.Time) string {
	return "cleaned_vaccine_data/" + day.Format(domain.KeyDateLayout) + ".json"
}
