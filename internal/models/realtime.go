package models

import "encoding/json"

// Event names on the realtime surface. Inbound events come from the
// client's WebSocket, outbound ones are pushed through the client's
// send channel.
const (
	// Inbound
	EventJoinQueue  = "stranger:joinQueue"
	EventLeaveQueue = "stranger:leaveQueue"
	EventRelay      = "stranger:relay"
	EventEndSession = "stranger:end"
	EventReport     = "stranger:report"
	EventSendDM     = "dm:send"

	// Outbound
	EventPresenceUpdate  = "presence:update"
	EventWaiting         = "stranger:waiting"
	EventMatched         = "stranger:matched"
	EventEnded           = "stranger:ended"
	EventStrangerMessage = "stranger:message"
	EventDirectMessage   = "dm:message"
	EventError           = "error"
)

// Event is the envelope every realtime message travels in.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent wraps a payload struct into an Event. Payloads are our own
// structs, so marshalling them cannot fail in practice.
func NewEvent(eventType string, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: eventType, Data: data}
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// JoinQueuePayload carries the guest-supplied profile fields and the
// match criteria of a stranger:joinQueue request. For authenticated
// users the profile is loaded from storage and these fields are ignored.
type JoinQueuePayload struct {
	DisplayName string        `json:"display_name,omitempty"`
	Gender      string        `json:"gender,omitempty"`
	Interests   []string      `json:"interests,omitempty"`
	Criteria    MatchCriteria `json:"criteria"`
}

// RelayPayload is an in-session message from one stranger to the other.
type RelayPayload struct {
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

// EndSessionPayload asks to leave the given session voluntarily.
type EndSessionPayload struct {
	SessionID string `json:"session_id"`
}

// ReportPayload files a moderation report against the current partner.
type ReportPayload struct {
	SessionID string `json:"session_id"`
	Category  string `json:"category"`
	Comment   string `json:"comment,omitempty"`
}

// SendDMPayload is a direct message to a friend.
type SendDMPayload struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	UserID string         `json:"user_id"`
	Status PresenceStatus `json:"status"`
}

type MatchedPayload struct {
	SessionID string         `json:"session_id"`
	Partner   DisplayProfile `json:"partner"`
}

type EndedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

type StrangerMessagePayload struct {
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

type DirectMessagePayload struct {
	MessageID uint            `json:"message_id"`
	From      string          `json:"from"`
	Payload   json.RawMessage `json:"payload"`
	SentAt    int64           `json:"sent_at"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
