package domain

import (
	"context"
	"time"
)

// GroupFilter narrows a public group listing.
type GroupFilter struct {
	// ActiveAfter excludes groups whose session ends at or before this
	// instant. Zero means no time filter.
	ActiveAfter time.Time
	// Query matches subject, professor name, or location, case-insensitively.
	Query string
	// OrganizerEmail restricts the listing to one organizer's groups.
	OrganizerEmail string
}

// StudyGroupRepository provides persistence for study groups.
type StudyGroupRepository interface {
	Create(ctx context.Context, g *StudyGroup) (*StudyGroup, error)
	GetByID(ctx context.Context, id string) (*StudyGroup, error)
	// ListWithCounts returns groups matching the filter ordered by start
	// time, each with its current participant count.
	ListWithCounts(ctx context.Context, filter GroupFilter) ([]GroupWithCount, error)
	// Delete removes a group and, by cascade, all its participants in a
	// single transaction.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes every group whose expiry or session end is at or
	// before now, returning the number of groups removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ParticipantRepository provides persistence for group membership.
type ParticipantRepository interface {
	// Join inserts a participant after checking, atomically with the insert,
	// that the group exists, the email is not already a member, and the
	// group is not at capacity.
	Join(ctx context.Context, p *Participant) (*Participant, error)
	// Leave removes the membership of email in the group.
	Leave(ctx context.Context, groupID, email string) error
	GetByID(ctx context.Context, id string) (*Participant, error)
	ListForGroup(ctx context.Context, groupID string) ([]Participant, error)
	CountForGroup(ctx context.Context, groupID string) (int64, error)
	IsMember(ctx context.Context, groupID, email string) (bool, error)
}
