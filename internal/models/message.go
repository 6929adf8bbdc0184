package models

import "gorm.io/gorm"

// DirectMessage is a persisted friend-to-friend message. The embedded
// gorm.Model provides the message ID used as the polling cursor.
type DirectMessage struct {
	gorm.Model

	SenderID    string `gorm:"type:text;not null;index"`
	RecipientID string `gorm:"type:text;not null;index:idx_recipient_cursor"`
	// Payload is the client-defined message body, stored verbatim.
	Payload string `gorm:"type:text;not null"`
	// Delivered marks that the recipient had a live connection when the
	// message was relayed. Undelivered messages are picked up by polling.
	Delivered bool `gorm:"default:false"`
}
