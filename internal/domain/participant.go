package domain

import (
	"strings"
	"time"
)

// Participant represents a member who joined a study group. Its lifecycle is
// bound to the owning group: deleting the group deletes its participants.
type Participant struct {
	ID           string    `json:"id"`
	StudyGroupID string    `json:"study_group_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	JoinedAt     time.Time `json:"joined_at"`
}

// JoinRequest holds parameters for joining a study group.
type JoinRequest struct {
	StudyGroupID string
	Name         string
	Email        string
}

// Validate checks that the request is well-formed under the given email
// policy. Membership and capacity are checked by the store, not here.
func (r *JoinRequest) Validate(emails *EmailPolicy) error {
	if r.StudyGroupID == "" {
		return ErrValidation("study_group_id is required")
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ErrValidation("name is required")
	}
	if len(name) > MaxNameLength {
		return ErrValidation("name must be %d characters or less", MaxNameLength)
	}
	return emails.Validate(r.Email)
}
