package domain

import "time"

// RetentionWindow is how long a group is kept after creation before the
// sweep reclaims it, unless its session ends sooner.
const RetentionWindow = 24 * time.Hour

// ComputeExpiry returns min(createdAt + RetentionWindow, endTime). It is
// evaluated once at group creation and never recomputed.
func ComputeExpiry(createdAt, endTime time.Time) time.Time {
	byRetention := createdAt.Add(RetentionWindow)
	if endTime.Before(byRetention) {
		return endTime
	}
	return byRetention
}

// Expired reports whether a group is eligible for reclamation at the given
// instant: past its expiry, or past its session end regardless of expiry.
func (g *StudyGroup) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt) || !now.Before(g.EndTime)
}
