package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coloradocovid/covid-data-etl/internal/adapter/s3store"
	"github.com/coloradocovid/covid-data-etl/internal/domain"
)

// backfillFloor is the first date the historical case API has data for
// Colorado.
var backfillFloor = time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)

// BackfillCases loads historical case records for each day from start
// through end inclusive, pulling one payload per day from the archive API.
// Deltas are seeded from the stored row preceding start when one exists, so
// a mid-history backfill does not restart its increases from zero.
func (p *Pipeline) BackfillCases(ctx context.Context, start, end time.Time) (int, error) {
	if start.Before(backfillFloor) {
		return 0, fmt.Errorf("start %s precedes first available date %s",
			start.Format(domain.ISODateLayout), backfillFloor.Format(domain.ISODateLayout))
	}
	if end.Before(start) {
		return 0, fmt.Errorf("end %s precedes start %s",
			end.Format(domain.ISODateLayout), start.Format(domain.ISODateLayout))
	}
	if !end.Before(domain.MountainToday()) {
		return 0, fmt.Errorf("end %s must be before today; the daily jobs own current data",
			end.Format(domain.ISODateLayout))
	}

	logger := p.logger.With("job", JobBackfill)

	var records []domain.DailyCaseRecord
	if seed, ok, err := p.db.CaseOnDate(ctx, start.AddDate(0, 0, -1)); err != nil {
		return 0, fmt.Errorf("seed record: %w", err)
	} else if ok {
		records = append(records, seed)
	}
	seeded := len(records)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		url := fmt.Sprintf("%s/%s.json", p.cfg.BackfillCaseURL, day.Format(domain.KeyDateLayout))
		raw, err := p.timedFetch(ctx, "cases", url)
		if err != nil {
			return 0, fmt.Errorf("fetch %s: %w", day.Format(domain.ISODateLayout), err)
		}
		if err := p.blobs.Put(ctx, s3store.RawCasesKey(day), raw); err != nil {
			return 0, fmt.Errorf("store raw %s: %w", day.Format(domain.ISODateLayout), err)
		}

		rec, err := domain.NormalizeBackfillCase(raw, day)
		if err != nil {
			return 0, fmt.Errorf("normalize %s: %w", day.Format(domain.ISODateLayout), err)
		}
		records = append(records, rec)
	}

	records = domain.AddCaseIncreases(records)[seeded:]

	for _, rec := range records {
		cleaned, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("encode cleaned %s: %w", rec.ReportingDate.Format(domain.ISODateLayout), err)
		}
		if err := p.blobs.Put(ctx, s3store.CleanedCasesKey(rec.ReportingDate), cleaned); err != nil {
			return 0, fmt.Errorf("store cleaned %s: %w", rec.ReportingDate.Format(domain.ISODateLayout), err)
		}
	}

	n, err := p.timedUpsert(ctx, "cases", func(ctx context.Context) (int, error) {
		return p.db.UpsertCases(ctx, records, p.cfg.BatchSize)
	})
	if err != nil {
		return n, fmt.Errorf("upsert backfill: %w", err)
	}

	logger.Info("backfill complete",
		"start", start.Format(domain.ISODateLayout),
		"end", end.Format(domain.ISODateLayout),
		"rows", n)
	if err := p.db.RecordInvoke(ctx, JobBackfill, true); err != nil {
		logger.Warn("record invoke failed", "error", err)
	}
	return n, nil
}
