package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/coloradocovid/covid-data-etl/internal/domain"
)

// RunDailyCheck verifies that yesterday's reporting day made it into both
// tables and that the case row carries hospitalization data. Any gap is
// published as a missing-data alert so an operator can rerun or backfill.
func (p *Pipeline) RunDailyCheck(ctx context.Context) ([]string, error) {
	logger := p.logger.With("job", JobCheck)
	yesterday := domain.MountainYesterday()

	var missing []string

	for _, table := range []string{"cases", "vaccines"} {
		latest, haveRows, err := p.db.LatestReportingDate(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("latest %s date: %w", table, err)
		}
		if !haveRows || latest.Before(yesterday) {
			missing = append(missing, table)
		}
	}

	rec, haveCase, err := p.db.CaseOnDate(ctx, yesterday)
	if err != nil {
		return nil, fmt.Errorf("case row for %s: %w", yesterday.Format(domain.ISODateLayout), err)
	}
	if haveCase && rec.HospitalizedCurrently == nil {
		missing = append(missing, "hospitalized")
	}

	p.metrics.RunsTotal.WithLabelValues(JobCheck, "success").Inc()
	p.ready.Store(true)

	if len(missing) == 0 {
		logger.Info("daily check passed", "date", yesterday.Format(domain.ISODateLayout))
		return nil, nil
	}

	msg := fmt.Sprintf("no data for %s: %s", yesterday.Format(domain.ISODateLayout), strings.Join(missing, ", "))
	logger.Warn("daily check found gaps", "missing", missing)
	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, subjectMissingData, msg); err != nil {
			return missing, fmt.Errorf("publish missing-data alert: %w", err)
		}
		p.metrics.AlertsSent.Inc()
	}
	return missing, nil
}
