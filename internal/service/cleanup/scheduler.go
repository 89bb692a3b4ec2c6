package cleanup

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the sweeper on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *slog.Logger
}

// NewScheduler creates a scheduler that sweeps on the given cron spec
// (e.g. "@every 10m").
func NewScheduler(sweeper *Sweeper, schedule string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		logger:  logger,
	}
	_, err := s.cron.AddFunc(schedule, func() {
		if _, sweepErr := sweeper.Sweep(context.Background()); sweepErr != nil {
			logger.Warn("scheduled sweep failed", "error", sweepErr)
		}
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cleanup scheduled", "schedule", schedule)
	return s, nil
}

// Start begins scheduled sweeping.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cleanup scheduler started")
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cleanup scheduler stopped")
}
