package domain

// increase computes a day-over-day delta for one metric. If either side is
// missing the delta is not computable and stays nil; downstream consumers
// must treat nil as "unknown", not zero.
func increase(cur, prev *int) *int {
	if cur == nil || prev == nil {
		return nil
	}
	d := *cur - *prev
	return &d
}

// AddCaseIncreases fills the increase fields of a date-ordered slice of case
// records from consecutive cumulative differences. The first record's
// increases equal its own cumulative values (delta from an implicit zero
// baseline). Each metric is computed independently, and recomputation over
// the same cumulative inputs is pure, so applying this twice is idempotent.
func AddCaseIncreases(days []DailyCaseRecord) []DailyCaseRecord {
	for i := range days {
		if i == 0 {
			days[i].PositiveIncrease = copyInt(days[i].Positive)
			days[i].DeathIncrease = copyInt(days[i].DeathConfirmed)
			days[i].HospitalizedIncrease = copyInt(days[i].TotalHospitalized)
			days[i].TestedIncrease = copyInt(days[i].Tested)
			continue
		}
		days[i].PositiveIncrease = increase(days[i].Positive, days[i-1].Positive)
		days[i].DeathIncrease = increase(days[i].DeathConfirmed, days[i-1].DeathConfirmed)
		days[i].HospitalizedIncrease = increase(days[i].TotalHospitalized, days[i-1].TotalHospitalized)
		days[i].TestedIncrease = increase(days[i].Tested, days[i-1].Tested)
	}
	return days
}

// AddVaccineIncreases fills the increase fields of a date-ordered slice of
// vaccine records. DailyQty is the day-over-day delta of DailyCumulative.
// One-dose and two-dose increases are computed independently of each other;
// a missing total for one metric never blocks the delta for another.
func AddVaccineIncreases(days []DailyVaccineRecord) []DailyVaccineRecord {
	for i := range days {
		if i == 0 {
			days[i].DailyQty = copyInt(days[i].DailyCumulative)
			days[i].DistributedIncrease = copyInt(days[i].DistributedTotal)
			days[i].OneDoseIncrease = copyInt(days[i].OneDoseTotal)
			days[i].TwoDosesIncrease = copyInt(days[i].TwoDosesTotal)
			continue
		}
		days[i].DailyQty = increase(days[i].DailyCumulative, days[i-1].DailyCumulative)
		days[i].DistributedIncrease = increase(days[i].DistributedTotal, days[i-1].DistributedTotal)
		days[i].OneDoseIncrease = increase(days[i].OneDoseTotal, days[i-1].OneDoseTotal)
		days[i].TwoDosesIncrease = increase(days[i].TwoDosesTotal, days[i-1].TwoDosesTotal)
	}
	return days
}
