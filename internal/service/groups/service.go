// Package groups implements study group creation, listing, and the organizer
// authorization policy.
package groups

import (
	"context"
	"log/slog"
	"time"

	"studygroups/internal/domain"
)

// Service coordinates group lifecycle operations against the store.
type Service struct {
	groups       domain.StudyGroupRepository
	participants domain.ParticipantRepository
	emails       *domain.EmailPolicy
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates a group service.
func NewService(groups domain.StudyGroupRepository, participants domain.ParticipantRepository, emails *domain.EmailPolicy, logger *slog.Logger) *Service {
	return &Service{
		groups:       groups,
		participants: participants,
		emails:       emails,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates the request and persists a new group. The expiry is
// derived here, once, and never recomputed.
func (s *Service) Create(ctx context.Context, req domain.CreateGroupRequest) (*domain.StudyGroup, error) {
	if err := req.Validate(s.emails); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	g := &domain.StudyGroup{
		Subject:        req.Subject,
		Description:    req.Description,
		ProfessorName:  req.ProfessorName,
		Location:       req.Location,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		StudentLimit:   req.StudentLimit,
		OrganizerName:  req.OrganizerName,
		OrganizerEmail: domain.NormalizeEmail(req.OrganizerEmail),
		CreatedAt:      now,
		ExpiresAt:      domain.ComputeExpiry(now, req.EndTime.UTC()),
	}

	created, err := s.groups.Create(ctx, g)
	if err != nil {
		return nil, err
	}
	s.logger.Info("study group created",
		"group_id", created.ID,
		"subject", created.Subject,
		"expires_at", created.ExpiresAt,
	)
	return created, nil
}

// Get returns the public projection of one group with its current count.
func (s *Service) Get(ctx context.Context, id string) (*domain.PublicGroup, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.participants.CountForGroup(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	view := domain.PublicView(*g, count)
	return &view, nil
}

// ListPublic returns active groups (session not yet ended) in start-time
// order, optionally filtered by a search query. Organizer emails are never
// included.
func (s *Service) ListPublic(ctx context.Context, query string) ([]domain.PublicGroup, error) {
	list, err := s.groups.ListWithCounts(ctx, domain.GroupFilter{
		ActiveAfter: s.now().UTC(),
		Query:       query,
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.PublicGroup, 0, len(list))
	for _, gc := range list {
		out = append(out, domain.PublicView(gc.Group, gc.ParticipantCount))
	}
	return out, nil
}

// ListForOrganizer returns every group owned by the verified identity,
// including private fields. Ended groups are included so organizers can see
// their history until the sweep reclaims it.
func (s *Service) ListForOrganizer(ctx context.Context, identity string) ([]domain.OrganizerGroup, error) {
	if identity == "" {
		return nil, domain.ErrAccessDenied("authentication required")
	}
	list, err := s.groups.ListWithCounts(ctx, domain.GroupFilter{
		OrganizerEmail: domain.NormalizeEmail(identity),
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrganizerGroup, 0, len(list))
	for _, gc := range list {
		out = append(out, domain.OrganizerView(gc.Group, gc.ParticipantCount))
	}
	return out, nil
}

// Delete removes a group and all its participants. Only the organizer may
// delete it.
func (s *Service) Delete(ctx context.Context, id, identity string) error {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !g.IsOrganizer(identity) {
		return domain.ErrAccessDenied("only the organizer can delete this study group")
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("study group deleted", "group_id", id, "organizer", g.OrganizerEmail)
	return nil
}
