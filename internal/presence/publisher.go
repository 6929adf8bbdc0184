// Package presence fans out online/offline transitions to the parties
// that care about them: the user's friends and the admin dashboard.
package presence

import (
	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

// SubscriberSource resolves who should hear about a user's presence.
type SubscriberSource interface {
	FriendIDs(userID string) ([]string, error)
}

// UserSender delivers an event to every live connection of a user.
// Implemented by the chat hub.
type UserSender interface {
	SendToUser(userID string, ev models.Event)
}

// DashboardFeed mirrors presence updates to the admin dashboard channel.
// Implemented by the storage service over Redis pub/sub.
type DashboardFeed interface {
	PublishPresence(userID string, status string) error
}

// Publisher is stateless; each Publish call resolves subscribers fresh
// and delivers best-effort with per-subscriber isolation.
type Publisher struct {
	friends   SubscriberSource
	sender    UserSender
	dashboard DashboardFeed // may be nil
}

func NewPublisher(friends SubscriberSource, sender UserSender, dashboard DashboardFeed) *Publisher {
	return &Publisher{friends: friends, sender: sender, dashboard: dashboard}
}

// Publish delivers the transition to every subscriber. A failed
// delivery to one subscriber never blocks or fails the others.
func (p *Publisher) Publish(userID string, status models.PresenceStatus) {
	ev := models.NewEvent(models.EventPresenceUpdate, models.PresencePayload{
		UserID: userID,
		Status: status,
	})

	friendIDs, err := p.friends.FriendIDs(userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("presence: friend lookup failed")
	}
	for _, friendID := range friendIDs {
		p.deliver(friendID, ev)
	}

	if p.dashboard != nil {
		if err := p.dashboard.PublishPresence(userID, string(status)); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("presence: dashboard publish failed")
		}
	}
}

func (p *Publisher) deliver(userID string, ev models.Event) {
	// A panicking subscriber must not take the whole fan-out down.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("user_id", userID).Msg("presence: subscriber delivery panicked")
		}
	}()
	p.sender.SendToUser(userID, ev)
}
