package membership

import (
	"context"
	"errors"
	"sync"
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

// mockNotifier records events; safe for the background dispatch in Join/Leave.
type mockNotifier struct {
	mu     sync.Mutex
	joined []domain.Participant
	left   []domain.Participant
	counts []int64
}

func (m *mockNotifier) ParticipantJoined(_ context.Context, _ domain.StudyGroup, p domain.Participant, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joined = append(m.joined, p)
	m.counts = append(m.counts, count)
}

func (m *mockNotifier) ParticipantLeft(_ context.Context, _ domain.StudyGroup, p domain.Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = append(m.left, p)
}

func (m *mockNotifier) joinedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.joined)
}

func (m *mockNotifier) leftCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.left)
}

func (m *mockNotifier) lastJoined() (domain.Participant, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joined[len(m.joined)-1], m.counts[len(m.counts)-1]
}
