package groups

import (
	"context"
	"errors"
	"time"

	"studygroups/internal/domain"
)

var errTest = errors.New("boom")

type mockGroupRepo struct {
	CreateFn         func(ctx context.Context, g *domain.StudyGroup) (*domain.StudyGroup, error)
	GetByIDFn        func(ctx context.Context, id string) (*domain.StudyGroup, error)
	ListWithCountsFn func(ctx context.Context, filter domain.GroupFilter) ([]domain.GroupWithCount, error)
	DeleteFn         func(ctx context.Context, id string) error
	DeleteExpiredFn  func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockGroupRepo) Create(ctx context.Context, g *domain.StudyGroup) (*domain.StudyGroup, error) {
	return m.CreateFn(ctx, g)
}

func (m *mockGroupRepo) GetByID(ctx context.Context, id string) (*domain.StudyGroup, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockGroupRepo) ListWithCounts(ctx context.Context, filter domain.GroupFilter) ([]domain.GroupWithCount, error) {
	return m.ListWithCountsFn(ctx, filter)
}

func (m *mockGroupRepo) Delete(ctx context.Context, id string) error {
	return m.DeleteFn(ctx, id)
}

func (m *mockGroupRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return m.DeleteExpiredFn(ctx, now)
}

type mockParticipantRepo struct {
	JoinFn          func(ctx context.Context, p *domain.Participant) (*domain.Participant, error)
	LeaveFn         func(ctx context.Context, groupID, email string) error
	GetByIDFn       func(ctx context.Context, id string) (*domain.Participant, error)
	ListForGroupFn  func(ctx context.Context, groupID string) ([]domain.Participant, error)
	CountForGroupFn func(ctx context.Context, groupID string) (int64, error)
	IsMemberFn      func(ctx context.Context, groupID, email string) (bool, error)
}

func (m *mockParticipantRepo) Join(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	return m.JoinFn(ctx, p)
}

func (m *mockParticipantRepo) Leave(ctx context.Context, groupID, email string) error {
	return m.LeaveFn(ctx, groupID, email)
}

func (m *mockParticipantRepo) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockParticipantRepo) ListForGroup(ctx context.Context, groupID string) ([]domain.Participant, error) {
	return m.ListForGroupFn(ctx, groupID)
}

func (m *mockParticipantRepo) CountForGroup(ctx context.Context, groupID string) (int64, error) {
	return m.CountForGroupFn(ctx, groupID)
}

func (m *mockParticipantRepo) IsMember(ctx context.Context, groupID, email string) (bool, error) {
	return m.IsMemberFn(ctx, groupID, email)
}
