package domain

import (
	"strings"
	"time"
)

// MaxNameLength bounds free-text name fields.
const MaxNameLength = 100

// StudyGroup represents a scheduled study session with capacity and time
// bounds. ExpiresAt is derived at creation (see ComputeExpiry) and immutable.
type StudyGroup struct {
	ID             string
	Subject        string
	Description    string
	ProfessorName  string
	Location       string
	StartTime      time.Time
	EndTime        time.Time
	StudentLimit   *int
	OrganizerName  string
	OrganizerEmail string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// IsFull reports whether the group is at capacity given the current
// participant count. Groups without a limit are never full.
func (g *StudyGroup) IsFull(participantCount int64) bool {
	return g.StudentLimit != nil && participantCount >= int64(*g.StudentLimit)
}

// IsOrganizer reports whether the given verified identity owns this group.
// Organizer emails are stored normalized, so normalizing the identity makes
// the comparison case-insensitive.
func (g *StudyGroup) IsOrganizer(identity string) bool {
	return identity != "" && NormalizeEmail(identity) == g.OrganizerEmail
}

// GroupWithCount pairs a group with its current participant count.
type GroupWithCount struct {
	Group            StudyGroup
	ParticipantCount int64
}

// PublicGroup is the projection of a group exposed to unauthenticated
// callers. It never carries the organizer email.
type PublicGroup struct {
	ID               string    `json:"id"`
	Subject          string    `json:"subject"`
	Description      string    `json:"description,omitempty"`
	ProfessorName    string    `json:"professor_name,omitempty"`
	Location         string    `json:"location"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	StudentLimit     *int      `json:"student_limit"`
	OrganizerName    string    `json:"organizer_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	ParticipantCount int64     `json:"participant_count"`
	IsFull           bool      `json:"is_full"`
}

// OrganizerGroup is the projection returned to a group's own organizer. It
// extends the public view with the organizer email.
type OrganizerGroup struct {
	PublicGroup
	OrganizerEmail string `json:"organizer_email"`
}

// PublicView projects a group and its count for unauthenticated callers.
func PublicView(g StudyGroup, count int64) PublicGroup {
	return PublicGroup{
		ID:               g.ID,
		Subject:          g.Subject,
		Description:      g.Description,
		ProfessorName:    g.ProfessorName,
		Location:         g.Location,
		StartTime:        g.StartTime,
		EndTime:          g.EndTime,
		StudentLimit:     g.StudentLimit,
		OrganizerName:    g.OrganizerName,
		CreatedAt:        g.CreatedAt,
		ExpiresAt:        g.ExpiresAt,
		ParticipantCount: count,
		IsFull:           g.IsFull(count),
	}
}

// OrganizerView projects a group for its organizer, including private fields.
func OrganizerView(g StudyGroup, count int64) OrganizerGroup {
	return OrganizerGroup{
		PublicGroup:    PublicView(g, count),
		OrganizerEmail: g.OrganizerEmail,
	}
}

// CreateGroupRequest holds parameters for creating a new study group.
type CreateGroupRequest struct {
	Subject        string
	Description    string
	ProfessorName  string
	Location       string
	StartTime      time.Time
	EndTime        time.Time
	StudentLimit   *int
	OrganizerName  string
	OrganizerEmail string
}

// Validate checks that the request is well-formed under the given email
// policy.
func (r *CreateGroupRequest) Validate(emails *EmailPolicy) error {
	if strings.TrimSpace(r.Subject) == "" {
		return ErrValidation("subject is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return ErrValidation("location is required")
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return ErrValidation("start_time and end_time are required")
	}
	if !r.EndTime.After(r.StartTime) {
		return ErrValidation("end_time must be after start_time")
	}
	if r.StudentLimit != nil && *r.StudentLimit <= 0 {
		return ErrValidation("student_limit must be a positive integer")
	}
	if err := emails.Validate(r.OrganizerEmail); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.OrganizerName)) > MaxNameLength {
		return ErrValidation("organizer_name must be %d characters or less", MaxNameLength)
	}
	return nil
}
