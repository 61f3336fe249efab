package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers the coordinator on a standard five-field cron expression.
type Scheduler struct {
	cron        *cron.Cron
	coordinator *Coordinator
	logger      *slog.Logger
	entryID     cron.EntryID
	schedule    string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers the daily run on schedule, e.g. "0 9 * * *".
func NewScheduler(schedule string, coordinator *Coordinator, logger *slog.Logger) (*Scheduler, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:        c,
		coordinator: coordinator,
		logger:      logger,
		schedule:    schedule,
		ctx:         ctx,
		cancel:      cancel,
	}

	entryID, err := c.AddFunc(schedule, s.runScheduled)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	s.entryID = entryID

	return s, nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "schedule", s.schedule, "next_run", s.Next().Format(time.RFC3339))
}

// Stop stops scheduling, cancels a scheduled run in flight and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Next returns the next activation time, zero before Start
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) runScheduled() {
	run, err := s.coordinator.Trigger(s.ctx, TriggerSchedule, false)
	switch {
	case errors.Is(err, ErrAlreadySentToday), errors.Is(err, ErrRunInProgress):
		s.logger.Info("Scheduled run skipped", "reason", err.Error())
	case err != nil:
		s.logger.Error("Scheduled run could not start", "error", err)
	default:
		s.logger.Info("Scheduled run finished", "run_id", run.ID, "status", run.Status)
	}
}
