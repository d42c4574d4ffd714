package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(yyyymmdd string) time.Time {
	d, err := time.Parse(KeyDateLayout, yyyymmdd)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddCaseIncreases(t *testing.T) {
	t.Run("first record equals its own cumulative values", func(t *testing.T) {
		days := AddCaseIncreases([]DailyCaseRecord{{
			ReportingDate:     day("20200304"),
			Positive:          IntPtr(1000),
			DeathConfirmed:    IntPtr(10),
			TotalHospitalized: IntPtr(50),
			Tested:            IntPtr(8000),
		}})

		require.Len(t, days, 1)
		assert.Equal(t, 1000, *days[0].PositiveIncrease)
		assert.Equal(t, 10, *days[0].DeathIncrease)
		assert.Equal(t, 50, *days[0].HospitalizedIncrease)
		assert.Equal(t, 8000, *days[0].TestedIncrease)
	})

	t.Run("later records are consecutive differences", func(t *testing.T) {
		days := AddCaseIncreases([]DailyCaseRecord{
			{ReportingDate: day("20200304"), Positive: IntPtr(1000), Tested: IntPtr(8000)},
			{ReportingDate: day("20200305"), Positive: IntPtr(1050), Tested: IntPtr(8400)},
		})

		assert.Equal(t, 50, *days[1].PositiveIncrease)
		assert.Equal(t, 400, *days[1].TestedIncrease)
	})

	t.Run("a missing side yields a nil increase without blocking other metrics", func(t *testing.T) {
		days := AddCaseIncreases([]DailyCaseRecord{
			{ReportingDate: day("20200304"), Positive: IntPtr(1000)},
			{ReportingDate: day("20200305"), Positive: IntPtr(1050), Tested: IntPtr(8400)},
		})

		assert.Equal(t, 50, *days[1].PositiveIncrease)
		assert.Nil(t, days[1].TestedIncrease) // no previous tested value
	})

	t.Run("recomputation is idempotent", func(t *testing.T) {
		input := []DailyCaseRecord{
			{ReportingDate: day("20200304"), Positive: IntPtr(1000), DeathConfirmed: IntPtr(10)},
			{ReportingDate: day("20200305"), Positive: IntPtr(1050), DeathConfirmed: IntPtr(12)},
			{ReportingDate: day("20200306"), Positive: IntPtr(1130)},
		}

		once := AddCaseIncreases(input)
		twice := AddCaseIncreases(once)

		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("AddCaseIncreases not idempotent (-once +twice):\n%s", diff)
		}
	})

	t.Run("increase fields do not alias cumulative fields", func(t *testing.T) {
		days := AddCaseIncreases([]DailyCaseRecord{
			{ReportingDate: day("20200304"), Positive: IntPtr(1000)},
		})

		*days[0].PositiveIncrease = 7
		assert.Equal(t, 1000, *days[0].Positive)
	})
}

func TestAddVaccineIncreases(t *testing.T) {
	t.Run("length one sequence takes its own totals", func(t *testing.T) {
		days := AddVaccineIncreases([]DailyVaccineRecord{{
			ReportingDate:    day("20210401"),
			DailyCumulative:  IntPtr(500),
			OneDoseTotal:     IntPtr(300),
			TwoDosesTotal:    IntPtr(150),
			DistributedTotal: IntPtr(900),
		}})

		require.Len(t, days, 1)
		assert.Equal(t, 500, *days[0].DailyQty)
		assert.Equal(t, 300, *days[0].OneDoseIncrease)
		assert.Equal(t, 150, *days[0].TwoDosesIncrease)
		assert.Equal(t, 900, *days[0].DistributedIncrease)
	})

	t.Run("one dose and two dose increases are independent", func(t *testing.T) {
		days := AddVaccineIncreases([]DailyVaccineRecord{
			{ReportingDate: day("20210401"), OneDoseTotal: IntPtr(300), TwoDosesTotal: IntPtr(150)},
			{ReportingDate: day("20210402"), OneDoseTotal: IntPtr(340), TwoDosesTotal: IntPtr(180)},
		})

		assert.Equal(t, 40, *days[1].OneDoseIncrease)
		assert.Equal(t, 30, *days[1].TwoDosesIncrease)
		// And on the first record, one dose must not be overwritten by the
		// two dose baseline.
		assert.Equal(t, 300, *days[0].OneDoseIncrease)
		assert.Equal(t, 150, *days[0].TwoDosesIncrease)
	})

	t.Run("a gap in one series does not block the others", func(t *testing.T) {
		days := AddVaccineIncreases([]DailyVaccineRecord{
			{ReportingDate: day("20210401"), DailyCumulative: IntPtr(500), DistributedTotal: IntPtr(900)},
			{ReportingDate: day("20210402"), DailyCumulative: IntPtr(560)},
		})

		assert.Equal(t, 60, *days[1].DailyQty)
		assert.Nil(t, days[1].DistributedIncrease)
	})

	t.Run("recomputation is idempotent", func(t *testing.T) {
		input := []DailyVaccineRecord{
			{ReportingDate: day("20210401"), DailyCumulative: IntPtr(500)},
			{ReportingDate: day("20210402"), DailyCumulative: IntPtr(560)},
		}

		once := AddVaccineIncreases(input)
		twice := AddVaccineIncreases(once)

		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("AddVaccineIncreases not idempotent (-once +twice):\n%s", diff)
		}
	})
}
