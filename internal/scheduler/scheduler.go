// Package scheduler drives the recurring ingestion jobs: the hourly case and
// vaccine cycles and the once-daily completeness check.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/coloradocovid/covid-data-etl/internal/pipeline"
)

// jobTimeout bounds one full ingestion cycle, including the upstream fetch
// and the batched upsert.
const jobTimeout = 5 * time.Minute

// dailyCheckAt is when the completeness check fires. The sources publish
// around 16:00 Mountain; 20:00 UTC-7-as-UTC leaves slack for late days.
const dailyCheckAt = "20:00"

// Scheduler runs the ingestion jobs on their intervals.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pipe      *pipeline.Pipeline
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler around the pipeline.
func New(pipe *pipeline.Pipeline, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pipe:      pipe,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the jobs and starts the underlying scheduler. The first
// ingestion cycle fires immediately so a fresh deploy does not wait a full
// interval for data.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		s.runJob("cases", func(ctx context.Context) error {
			_, err := s.pipe.RunCases(ctx)
			return err
		})
		s.runJob("vaccines", func(ctx context.Context) error {
			_, err := s.pipe.RunVaccines(ctx)
			return err
		})
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Every(1).Day().At(dailyCheckAt).Do(func() {
		s.runJob("daily check", func(ctx context.Context) error {
			_, err := s.pipe.RunDailyCheck(ctx)
			return err
		})
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// runJob runs one job with a bounded context. Errors are logged only; the
// pipeline already alerted and the next tick retries.
func (s *Scheduler) runJob(name string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
	}
}
