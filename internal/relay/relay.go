// Package relay forwards direct messages between friends: persist
// first, then deliver to the recipient's live connections. Offline
// recipients pick their messages up by polling with a cursor.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

var (
	ErrNotFriends   = errors.New("recipient is not a friend")
	ErrBadRecipient = errors.New("sender and recipient must be distinct users")
)

// MessageStore is the slice of storage the relay needs.
type MessageStore interface {
	AreFriends(a, b string) (bool, error)
	SaveDirectMessage(msg *models.DirectMessage) error
	ListMessagesSince(userID string, sinceID uint, limit int) ([]models.DirectMessage, error)
}

// PresenceSource answers whether the recipient has a live connection.
type PresenceSource interface {
	IsOnline(userID string) bool
}

// UserSender pushes an event to every live connection of a user.
type UserSender interface {
	SendToUser(userID string, ev models.Event)
}

type Relay struct {
	store    MessageStore
	presence PresenceSource
	sender   UserSender
	limit    int
}

func New(store MessageStore, presence PresenceSource, sender UserSender, pollLimit int) *Relay {
	return &Relay{store: store, presence: presence, sender: sender, limit: pollLimit}
}

// Send persists the message and, if the recipient is online, pushes it
// to all their connections. The append always happens before delivery:
// a crash between the two loses nothing, the recipient polls it later.
func (r *Relay) Send(senderID, recipientID string, payload json.RawMessage) (*models.DirectMessage, error) {
	if senderID == "" || recipientID == "" || senderID == recipientID {
		return nil, ErrBadRecipient
	}
	friends, err := r.store.AreFriends(senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("friendship check: %w", err)
	}
	if !friends {
		return nil, ErrNotFriends
	}

	online := r.presence.IsOnline(recipientID)
	msg := &models.DirectMessage{
		SenderID:    senderID,
		RecipientID: recipientID,
		Payload:     string(payload),
		Delivered:   online,
	}
	if err := r.store.SaveDirectMessage(msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	if online {
		r.sender.SendToUser(recipientID, models.NewEvent(models.EventDirectMessage, models.DirectMessagePayload{
			MessageID: msg.ID,
			From:      senderID,
			Payload:   payload,
			SentAt:    msg.CreatedAt.Unix(),
		}))
	}
	return msg, nil
}

// ListSince returns the recipient's messages after the given cursor.
func (r *Relay) ListSince(userID string, sinceID uint) ([]models.DirectMessage, error) {
	return r.store.ListMessagesSince(userID, sinceID, r.limit)
}
