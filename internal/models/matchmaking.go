package models

import (
	"slices"
	"time"
)

// MatchCriteria is an extensible predicate over a potential partner.
// The zero value accepts anyone; the same-connection and same-user
// guards are enforced by the matchmaker regardless of criteria.
type MatchCriteria struct {
	// ExcludeUserIDs lists recent partners the participant does not
	// want to meet again.
	ExcludeUserIDs []string `json:"exclude_user_ids,omitempty"`
	// Gender, when set, requires the partner's profile gender to match.
	Gender string `json:"gender,omitempty"`
	// Interests, when set, requires at least one shared interest tag.
	Interests []string `json:"interests,omitempty"`
}

// Allows reports whether this side's criteria accept the other
// participant. Compatibility is the mutual AND of both sides.
func (c MatchCriteria) Allows(other ProfileSnapshot) bool {
	if other.UserID != "" && slices.Contains(c.ExcludeUserIDs, other.UserID) {
		return false
	}
	if c.Gender != "" && c.Gender != other.Gender {
		return false
	}
	if len(c.Interests) > 0 {
		shared := false
		for _, tag := range c.Interests {
			if slices.Contains(other.Interests, tag) {
				shared = true
				break
			}
		}
		if !shared {
			return false
		}
	}
	return true
}

// WaitingParticipant is one entry of the stranger queue. The profile is
// a snapshot taken before enqueueing; matching never does I/O.
type WaitingParticipant struct {
	ConnectionID string
	UserID       string // empty for guests
	Profile      ProfileSnapshot
	Criteria     MatchCriteria
	EnqueuedAt   time.Time
}
