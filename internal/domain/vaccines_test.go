package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pivotRow builds one GeoJSON feature of the vaccine pivot feed.
func pivotRow(metric, typ, category, section, date, publish string, value float64) string {
	return fmt.Sprintf(`{"properties":{"metric":%q,"type":%q,"category":%q,"section":%q,"date":%q,"publish_date":%q,"value":%v}}`,
		metric, typ, category, section, date, publish, value)
}

func pivotPayload(rows ...string) []byte {
	out := `{"features":[`
	for i, r := range rows {
		if i > 0 {
			out += ","
		}
		out += r
	}
	return []byte(out + `]}`)
}

func TestNormalizeVaccines(t *testing.T) {
	newDay := time.Date(2021, 4, 2, 0, 0, 0, 0, time.UTC) // publishes as 04/02/2021

	t.Run("keeps administration rows from the target publish batch only", func(t *testing.T) {
		raw := pivotPayload(
			pivotRow("Cumulative Daily", "All COVID Vaccines", "Administration", "", "04/01/2021", "04/02/2021", 500),
			pivotRow("Cumulative Daily", "All COVID Vaccines", "Administration", "", "04/01/2021", "04/01/2021", 480),
		)

		recs, unknown, err := NormalizeVaccines(raw, newDay)
		require.NoError(t, err)
		assert.Empty(t, unknown)
		require.Len(t, recs, 1)
		assert.Equal(t, 500, *recs[0].DailyCumulative)
	})

	t.Run("filters Weekly metrics and unspecified vaccine types", func(t *testing.T) {
		raw := pivotPayload(
			pivotRow("Weekly", "All COVID Vaccines", "Administration", "", "04/01/2021", "04/02/2021", 10),
			pivotRow("Daily", "Unspecified COVID Vaccine", "Administration", "", "04/01/2021", "04/02/2021", 20),
			pivotRow("Daily", "Pfizer", "Administration", "", "04/01/2021", "04/02/2021", 30),
		)

		recs, unknown, err := NormalizeVaccines(raw, newDay)
		require.NoError(t, err)
		assert.Empty(t, unknown)
		require.Len(t, recs, 1)
		assert.Equal(t, 30, *recs[0].DailyPfizer)
		assert.Nil(t, recs[0].DailyCumulative)
	})

	t.Run("statewide cumulative rows attach to their publish date", func(t *testing.T) {
		raw := pivotPayload(
			pivotRow("Cumulative Doses Distributed", "", "Cumulative counts to date", "State Data", "", "04/02/2021", 90000),
			pivotRow("Total Vaccine Providers", "", "Cumulative counts to date", "State Data", "", "04/02/2021", 1200),
			pivotRow("People Immunized with One Dose", "", "Cumulative counts to date", "State Data", "", "04/02/2021", 40000),
			pivotRow("People Immunized with Two Doses", "", "Cumulative counts to date", "State Data", "", "04/02/2021", 25000),
		)

		recs, unknown, err := NormalizeVaccines(raw, newDay)
		require.NoError(t, err)
		assert.Empty(t, unknown)
		require.Len(t, recs, 1)
		assert.Equal(t, time.Date(2021, 4, 2, 0, 0, 0, 0, time.UTC), recs[0].ReportingDate)
		assert.Equal(t, 90000, *recs[0].DistributedTotal)
		assert.Equal(t, 1200, *recs[0].TotalVaccineProviders)
		assert.Equal(t, 40000, *recs[0].OneDoseTotal)
		assert.Equal(t, 25000, *recs[0].TwoDosesTotal)
	})

	t.Run("cumulative doses administered wins over cumulative daily", func(t *testing.T) {
		raw := pivotPayload(
			pivotRow("Cumulative Daily", "All COVID Vaccines", "Administration", "", "04/02/2021", "04/02/2021", 480),
			pivotRow("Cumulative Doses Administered", "", "Cumulative counts to date", "State Data", "", "04/02/2021", 500),
		)

		recs, unknown, err := NormalizeVaccines(raw, newDay)
		require.NoError(t, err)
		assert.Empty(t, unknown)
		require.Len(t, recs, 1)
		assert.Equal(t, 500, *recs[0].DailyCumulative)
	})

	t.Run("the all-vaccines daily metric is discarded", func(t *testing.T) {
		raw := pivotPayload(
			pivotRow("Daily", "All COVID Vaccines", "Administration", "", "04/01/2021", "04/02/2021", 7777),
			pivotRow("Daily", "Moderna", "Administration", "", "04/01/2021", "04/02/2021", 111),
		)

		recs, unknown, err := NormalizeVaccines(raw, newDay)
		require.NoError(t, err)
		assert.Empty(t, unknown)
		require.Len(t, recs, 1)
		assert.Equal(t, 111, *recs[0].DailyModerna)
		// 7777 must not appear anywhere in the record.
		assert.Nil(t, recs[0].DailyQty)
		assert.Nil(t, recs[0].DailyCumulative)
	})

	t.Run("unknown metric keys are reported, not dropped silently", func(t *testing.T) {
		raw := pivotPayload(
			pivotRow("Brand New Metric", "Novavax", "Administration", "", "04/01/2021", "04/02/2021", 5),
			pivotRow("Daily", "Pfizer", "Administration", "", "04/01/2021", "04/02/2021", 30),
		)

		recs, unknown, err := NormalizeVaccines(raw, newDay)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, []string{"Novavax Brand New Metric"}, unknown)
		assert.Equal(t, 30, *recs[0].DailyPfizer)
	})

	t.Run("records sort ascending across vaccination dates", func(t *testing.T) {
		raw := pivotPayload(
			pivotRow("Cumulative Daily", "All COVID Vaccines", "Administration", "", "04/02/2021", "04/02/2021", 600),
			pivotRow("Cumulative Daily", "All COVID Vaccines", "Administration", "", "03/31/2021", "04/02/2021", 400),
			pivotRow("Cumulative Daily", "All COVID Vaccines", "Administration", "", "04/01/2021", "04/02/2021", 500),
		)

		recs, _, err := NormalizeVaccines(raw, newDay)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, 400, *recs[0].DailyCumulative)
		assert.Equal(t, 500, *recs[1].DailyCumulative)
		assert.Equal(t, 600, *recs[2].DailyCumulative)
	})

	t.Run("invalid JSON is a parse error", func(t *testing.T) {
		_, _, err := NormalizeVaccines([]byte("<html>"), newDay)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "vaccine geojson", parseErr.Source)
	})
}
