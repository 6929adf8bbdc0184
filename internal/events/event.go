// Package events publishes session analytics to the message broker and
// contains the background consumer that writes them to a log file.
package events

// SessionEnded is published on every pairing session teardown. It
// carries enough for downstream consumers to log or aggregate without
// querying the primary database.
type SessionEnded struct {
	SessionID       string `json:"session_id"`
	UserAID         string `json:"user_a_id,omitempty"`
	UserBID         string `json:"user_b_id,omitempty"`
	Reason          string `json:"reason"`
	MessageCount    int    `json:"message_count"`
	StartedAt       string `json:"started_at"`
	EndedAt         string `json:"ended_at"`
	DurationSeconds int64  `json:"duration_seconds"`
}
