package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coloradocovid/covid-data-etl/internal/domain"
)

const upsertCasesSQL = `INSERT INTO cases (
		reporting_date, positive, hospitalized_currently, total_hospitalized,
		death_confirmed, tested, positive_increase, death_increase,
		hospitalized_increase, tested_increase
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (reporting_date) DO UPDATE SET
		positive = EXCLUDED.positive,
		hospitalized_currently = EXCLUDED.hospitalized_currently,
		total_hospitalized = EXCLUDED.total_hospitalized,
		death_confirmed = EXCLUDED.death_confirmed,
		tested = EXCLUDED.tested,
		positive_increase = EXCLUDED.positive_increase,
		death_increase = EXCLUDED.death_increase,
		hospitalized_increase = EXCLUDED.hospitalized_increase,
		tested_increase = EXCLUDED.tested_increase,
		updated_at = now()
	WHERE cases.reporting_date = EXCLUDED.reporting_date`

const upsertVaccinesSQL = `INSERT INTO vaccines (
		reporting_date, daily_qty, daily_cumulative, one_dose_increase,
		one_dose_total, two_doses_increase, two_doses_total, daily_pfizer,
		daily_moderna, daily_janssen, pfizer_total, moderna_total,
		janssen_total, distributed_increase, distributed_total,
		total_vaccine_providers
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (reporting_date) DO UPDATE SET
		daily_qty = EXCLUDED.daily_qty,
		daily_cumulative = EXCLUDED.daily_cumulative,
		one_dose_increase = EXCLUDED.one_dose_increase,
		one_dose_total = EXCLUDED.one_dose_total,
		two_doses_increase = EXCLUDED.two_doses_increase,
		two_doses_total = EXCLUDED.two_doses_total,
		daily_pfizer = EXCLUDED.daily_pfizer,
		daily_moderna = EXCLUDED.daily_moderna,
		daily_janssen = EXCLUDED.daily_janssen,
		pfizer_total = EXCLUDED.pfizer_total,
		moderna_total = EXCLUDED.moderna_total,
		janssen_total = EXCLUDED.janssen_total,
		distributed_increase = EXCLUDED.distributed_increase,
		distributed_total = EXCLUDED.distributed_total,
		total_vaccine_providers = EXCLUDED.total_vaccine_providers,
		updated_at = now()
	WHERE vaccines.reporting_date = EXCLUDED.reporting_date`

// UpsertCases writes case records to the cases table. Records are committed
// in batches so a long backfill does not hold one transaction open for the
// whole run; each committed batch stays durable if a later one fails.
func (d *DB) UpsertCases(ctx context.Context, records []domain.DailyCaseRecord, batchSize int) (int, error) {
	return upsertBatches(ctx, d.conn, len(records), batchSize, func(tx *sql.Tx, i int) error {
		r := records[i]
		_, err := tx.ExecContext(ctx, upsertCasesSQL,
			r.ReportingDate,
			nullInt(r.Positive),
			nullInt(r.HospitalizedCurrently),
			nullInt(r.TotalHospitalized),
			nullInt(r.DeathConfirmed),
			nullInt(r.Tested),
			nullInt(r.PositiveIncrease),
			nullInt(r.DeathIncrease),
			nullInt(r.HospitalizedIncrease),
			nullInt(r.TestedIncrease),
		)
		return err
	})
}

// UpsertVaccines writes vaccine records to the vaccines table with the same
// batching behavior as UpsertCases.
func (d *DB) UpsertVaccines(ctx context.Context, records []domain.DailyVaccineRecord, batchSize int) (int, error) {
	return upsertBatches(ctx, d.conn, len(records), batchSize, func(tx *sql.Tx, i int) error {
		r := records[i]
		_, err := tx.ExecContext(ctx, upsertVaccinesSQL,
			r.ReportingDate,
			nullInt(r.DailyQty),
			nullInt(r.DailyCumulative),
			nullInt(r.OneDoseIncrease),
			nullInt(r.OneDoseTotal),
			nullInt(r.TwoDosesIncrease),
			nullInt(r.TwoDosesTotal),
			nullInt(r.DailyPfizer),
			nullInt(r.DailyModerna),
			nullInt(r.DailyJanssen),
			nullInt(r.PfizerTotal),
			nullInt(r.ModernaTotal),
			nullInt(r.JanssenTotal),
			nullInt(r.DistributedIncrease),
			nullInt(r.DistributedTotal),
			nullInt(r.TotalVaccineProviders),
		)
		return err
	})
}

// upsertBatches runs exec for each record index, committing every batchSize
// rows and once more at the end. It returns how many rows were committed.
func upsertBatches(ctx context.Context, conn *sql.DB, total, batchSize int, exec func(tx *sql.Tx, i int) error) (int, error) {
	if total == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 25
	}

	committed := 0
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return committed, fmt.Errorf("begin batch: %w", err)
		}

		for i := start; i < end; i++ {
			if err := exec(tx, i); err != nil {
				tx.Rollback()
				return committed, fmt.Errorf("upsert row %d: %w", i, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return committed, fmt.Errorf("commit batch: %w", err)
		}
		committed = end
	}

	return committed, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
