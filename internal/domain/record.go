package domain

import "time"

// Date layouts used across the pipeline. Upstream publishes US-style dates,
// the database and cleaned artifacts use ISO, and blob keys use a compact
// form with no separators.
const (
	SourceDateLayout = "01/02/2006"
	ISODateLayout    = "2006-01-02"
	KeyDateLayout    = "20060102"
)

// DailyCaseRecord is one reporting day of case statistics. Cumulative fields
// come from the source; increase fields are always recomputed locally and
// never trusted from upstream. A nil metric means the source did not report
// a value for that day (stored as SQL NULL, never zero).
type DailyCaseRecord struct {
	ReportingDate         time.Time `json:"reportingDate"`
	Positive              *int      `json:"positive"`
	HospitalizedCurrently *int      `json:"hospitalizedCurrently,omitempty"`
	TotalHospitalized     *int      `json:"hospitalizations"`
	DeathConfirmed        *int      `json:"deathConfirmed"`
	Tested                *int      `json:"tested"`

	PositiveIncrease     *int `json:"positiveIncrease"`
	DeathIncrease        *int `json:"deathIncrease"`
	HospitalizedIncrease *int `json:"hospitalizedIncrease"`
	TestedIncrease       *int `json:"testedIncrease"`
}

// DailyVaccineRecord is one reporting day of vaccination statistics.
// Totals are cumulative as published; daily and increase fields derive from
// consecutive cumulative differences.
type DailyVaccineRecord struct {
	ReportingDate time.Time `json:"date"`

	DailyQty        *int `json:"daily_increase"`
	DailyCumulative *int `json:"daily_cumulative"`

	OneDoseIncrease  *int `json:"one_dose_increase"`
	OneDoseTotal     *int `json:"one_dose_cumulative"`
	TwoDosesIncrease *int `json:"two_doses_increase"`
	TwoDosesTotal    *int `json:"two_doses_cumulative"`

	DailyPfizer  *int `json:"pfizer_daily"`
	DailyModerna *int `json:"moderna_daily"`
	DailyJanssen *int `json:"janssen_daily"`
	PfizerTotal  *int `json:"pfizer_cumulative"`
	ModernaTotal *int `json:"moderna_cumulative"`
	JanssenTotal *int `json:"janssen_cumulative"`

	DistributedIncrease *int `json:"distributed_increase"`
	DistributedTotal    *int `json:"distributed_cumulative"`

	TotalVaccineProviders *int `json:"total_vaccine_providers"`
}

// InvokeRecord is an append-only audit entry written on every pipeline run,
// whether or not new data was found. Operational visibility only; never read
// by business logic.
type InvokeRecord struct {
	FunctionName string
	InvokeTime   time.Time
	NewData      bool
}

// IntPtr returns a pointer to n. Convenience for building records and tests.
func IntPtr(n int) *int { return &n }

// copyInt returns a pointer to a copy of v, or nil if v is nil. Increase
// fields must never alias their cumulative counterparts.
func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
