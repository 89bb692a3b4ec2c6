// Package notify sends best-effort email notifications for membership
// changes. Delivery is fire-and-forget: failures are logged and never
// surfaced to the operation that triggered them.
package notify

import (
	"context"
	"log/slog"
	"time"

	"studygroups/internal/domain"
)

// Email is a single outbound message.
type Email struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers an email. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Notifier builds and sends the join / leave notification set.
type Notifier struct {
	sender  Sender // nil disables delivery
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a Notifier. A nil sender disables delivery; notifications are
// then logged at debug level only.
func New(sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		logger:  logger,
		timeout: 15 * time.Second,
	}
}

// ParticipantJoined sends the join confirmation to the participant and the
// new-member notification to the organizer.
func (n *Notifier) ParticipantJoined(ctx context.Context, g domain.StudyGroup, p domain.Participant, count int64) {
	n.send(ctx, "participant joined",
		Email{
			To:      []string{p.Email},
			Subject: "You're in! " + g.Subject + " study group",
			HTML:    joinConfirmationHTML(g, p, count),
		},
		Email{
			To:      []string{g.OrganizerEmail},
			Subject: p.Name + " joined your " + g.Subject + " study group",
			HTML:    organizerJoinedHTML(g, p, count),
		},
	)
}

// ParticipantLeft notifies the organizer and confirms to the participant.
func (n *Notifier) ParticipantLeft(ctx context.Context, g domain.StudyGroup, p domain.Participant) {
	n.send(ctx, "participant left",
		Email{
			To:      []string{p.Email},
			Subject: "You left the " + g.Subject + " study group",
			HTML:    leaveConfirmationHTML(g, p),
		},
		Email{
			To:      []string{g.OrganizerEmail},
			Subject: p.Name + " left your " + g.Subject + " study group",
			HTML:    organizerLeftHTML(g, p),
		},
	)
}

func (n *Notifier) send(ctx context.Context, event string, emails ...Email) {
	if n.sender == nil {
		n.logger.Debug("email delivery disabled", "event", event)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	for _, e := range emails {
		if err := n.sender.Send(ctx, e); err != nil {
			// Notification failure never fails the triggering operation.
			n.logger.Warn("notification delivery failed",
				"event", event,
				"to", e.To,
				"error", err,
			)
		}
	}
}
