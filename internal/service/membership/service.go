// Package membership implements joining and leaving study groups, and the
// member-scoped participant listing.
package membership

import (
	"context"
	"log/slog"
	"strings"

	"studygroups/internal/domain"
)

// Notifier receives membership events after they are committed. Delivery is
// best-effort; implementations must not block the caller on failure.
type Notifier interface {
	ParticipantJoined(ctx context.Context, g domain.StudyGroup, p domain.Participant, count int64)
	ParticipantLeft(ctx context.Context, g domain.StudyGroup, p domain.Participant)
}

// Service coordinates membership changes against the store and emits
// notifications once they succeed.
type Service struct {
	groups       domain.StudyGroupRepository
	participants domain.ParticipantRepository
	emails       *domain.EmailPolicy
	notifier     Notifier
	logger       *slog.Logger
}

// NewService creates a membership service. A nil notifier disables
// notifications.
func NewService(groups domain.StudyGroupRepository, participants domain.ParticipantRepository, emails *domain.EmailPolicy, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		groups:       groups,
		participants: participants,
		emails:       emails,
		notifier:     notifier,
		logger:       logger,
	}
}

// Join adds a participant to a group. The email domain is checked before the
// store is touched; existence, duplicate membership, and capacity are checked
// by the store atomically with the insert. On success the join notifications
// are sent in the background.
func (s *Service) Join(ctx context.Context, req domain.JoinRequest) (*domain.Participant, error) {
	if err := req.Validate(s.emails); err != nil {
		return nil, err
	}

	p, err := s.participants.Join(ctx, &domain.Participant{
		StudyGroupID: req.StudyGroupID,
		Name:         req.Name,
		Email:        domain.NormalizeEmail(req.Email),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("participant joined",
		"group_id", p.StudyGroupID,
		"participant_id", p.ID,
	)

	if s.notifier != nil {
		s.notifyJoined(context.WithoutCancel(ctx), *p)
	}
	return p, nil
}

// notifyJoined gathers the notification context and dispatches it without
// blocking the join. The group may already be gone if a sweep raced the join.
func (s *Service) notifyJoined(ctx context.Context, p domain.Participant) {
	g, err := s.groups.GetByID(ctx, p.StudyGroupID)
	if err != nil {
		s.logger.Warn("skipping join notification", "group_id", p.StudyGroupID, "error", err)
		return
	}
	count, err := s.participants.CountForGroup(ctx, p.StudyGroupID)
	if err != nil {
		s.logger.Warn("skipping join notification", "group_id", p.StudyGroupID, "error", err)
		return
	}
	go s.notifier.ParticipantJoined(ctx, *g, p, count)
}

// Leave removes the membership of email in the group. Leaving frees the seat
// for the next join.
func (s *Service) Leave(ctx context.Context, groupID, email string) error {
	if groupID == "" {
		return domain.ErrValidation("study_group_id is required")
	}
	if email == "" {
		return domain.ErrValidation("email is required")
	}
	email = domain.NormalizeEmail(email)

	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	p := domain.Participant{StudyGroupID: groupID, Email: email}
	if members, listErr := s.participants.ListForGroup(ctx, groupID); listErr == nil {
		for _, m := range members {
			if m.Email == email {
				p = m
				break
			}
		}
	}

	if err := s.participants.Leave(ctx, groupID, email); err != nil {
		return err
	}
	s.logger.Info("participant left", "group_id", groupID)

	if s.notifier != nil {
		go s.notifier.ParticipantLeft(context.WithoutCancel(ctx), *g, p)
	}
	return nil
}

// NotifyJoined re-sends the join notification set for a membership. Unlike
// the post-join dispatch this runs synchronously, but delivery failures are
// still only logged: the caller sees success once the group is known.
func (s *Service) NotifyJoined(ctx context.Context, groupID, name, email string) error {
	if groupID == "" || strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return domain.ErrValidation("Missing required fields")
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return nil
	}
	count, err := s.participants.CountForGroup(ctx, groupID)
	if err != nil {
		s.logger.Warn("participant count unavailable for notification", "group_id", groupID, "error", err)
	}
	s.notifier.ParticipantJoined(ctx, *g, domain.Participant{
		StudyGroupID: groupID,
		Name:         strings.TrimSpace(name),
		Email:        domain.NormalizeEmail(email),
	}, count)
	return nil
}

// Participants lists a group's members. Only current members and the
// organizer may see the list.
func (s *Service) Participants(ctx context.Context, groupID, requesterEmail string) ([]domain.Participant, error) {
	if requesterEmail == "" {
		return nil, domain.ErrAccessDenied("authentication required")
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(requesterEmail)
	if !g.IsOrganizer(email) {
		member, err := s.participants.IsMember(ctx, groupID, email)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, domain.ErrAccessDenied("only members can view the participant list")
		}
	}
	return s.participants.ListForGroup(ctx, groupID)
}
