// Package domain models Colorado COVID-19 case and vaccination reporting.
//
// # Data Sources
//
// Case statistics come from the state's ArcGIS open-data GeoJSON feed: one
// feature per reporting day, with cumulative Cases, Tested, Deaths, and Hosp
// counts in the feature properties and a MM/DD/YYYY date string. Vaccination
// statistics come from a second GeoJSON feed shaped as a pivot table: one
// feature per (metric, type, category, section, date) cell, republished in
// full every day under a new publish_date. A legacy HTML dashboard scrape
// covers the period before the vaccine feed existed; its adapter lives in
// internal/adapter/dashboard.
//
// # Source Conventions
//
// Dates:
//
//	MM/DD/YYYY throughout the upstream payloads, e.g. "03/04/2020".
//	Normalization reformats to ISO (2006-01-02) for the database and the
//	cleaned artifacts. Blob keys use yyyymmdd with no separators.
//
// Cumulative metrics:
//
//	Running totals as published: positive cases, deaths, tests, doses
//	administered, people immunized, doses distributed. Expected to be
//	monotonically non-decreasing across reporting dates.
//
// Increases:
//
//	Always recomputed locally as day-over-day differences of cumulative
//	metrics ([AddCaseIncreases], [AddVaccineIncreases]). Upstream increase
//	fields are never trusted; they have disagreed with the published
//	cumulative series in the past. The first record's increases equal its
//	own cumulative values (delta from an implicit zero baseline). A delta
//	with a missing side stays nil: "not computable", never zero.
//
// Vaccine metric vocabulary:
//
//	The pivot feed's metric names change without notice. Translation to
//	canonical fields goes through a closed lookup table in
//	[NormalizeVaccines]; unknown keys are reported and skipped so a
//	vocabulary change degrades one field instead of failing the run.
//	Two known quirks are handled explicitly: "Cumulative Doses
//	Administered" wins over "All COVID Vaccines Cumulative Daily" when
//	both appear, and "All COVID Vaccines Daily" is discarded entirely.
//
// # Freshness
//
// A run first asks whether the fetched payload covers the day after the
// latest stored reporting date ([IsNewDay]): a coarse substring match on the
// formatted date, chosen over schema-aware inspection because the payload is
// re-parsed in full immediately afterwards. "Not updated yet" is a normal
// outcome recorded in the invoke audit log with new_data=false.
package domain
