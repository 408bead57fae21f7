// Package scheduler runs the periodic retention purge that removes events
// past their configured age.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"pastlog/internal/service"
)

// purgeSchedule runs the retention purge at the start of every hour.
const purgeSchedule = "0 * * * *"

// Scheduler handles scheduled maintenance of the event log.
type Scheduler struct {
	events    *service.EventService
	cron      *cron.Cron
	logger    *slog.Logger
	retention time.Duration
}

// New creates a new scheduler instance. A zero retention disables the purge
// job.
func New(events *service.EventService, logger *slog.Logger, retention time.Duration) *Scheduler {
	return &Scheduler{
		events:    events,
		cron:      cron.New(),
		logger:    logger,
		retention: retention,
	}
}

// Start begins the scheduler with the hourly retention purge.
func (s *Scheduler) Start() error {
	if s.retention <= 0 {
		s.logger.Info("event retention disabled, scheduler idle")
		return nil
	}

	_, err := s.cron.AddFunc(purgeSchedule, func() {
		if err := s.purgeExpiredEvents(); err != nil {
			s.logger.Error("failed to purge expired events", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "retention", s.retention)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// purgeExpiredEvents deletes all events older than the retention window.
func (s *Scheduler) purgeExpiredEvents() error {
	deleted, err := s.events.DeleteOldEvents(context.Background(), s.retention)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Info("purged expired events", "count", deleted, "retention", s.retention)
	}
	return nil
}
