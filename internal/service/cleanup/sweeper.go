// Package cleanup removes expired study groups on a schedule.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"studygroups/internal/domain"
)

// Sweeper deletes every group whose retention window or session has ended.
// Participants go with their group via the store's cascade.
type Sweeper struct {
	groups domain.StudyGroupRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewSweeper creates a sweeper.
func NewSweeper(groups domain.StudyGroupRepository, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		groups: groups,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the sweeper clock, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep runs one cleanup pass and returns the number of groups removed.
// Sweeping an already-clean store removes nothing.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	removed, err := s.groups.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("expired study groups removed", "count", removed)
	} else {
		s.logger.Debug("sweep found nothing to remove")
	}
	return removed, nil
}
