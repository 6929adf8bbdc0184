package models

import "time"

type SessionState string

const (
	SessionActive SessionState = "active"
	SessionEnded  SessionState = "ended"
)

// End reasons reported to the remaining participant.
const (
	ReasonPartnerDisconnected = "partner_disconnected"
	ReasonUserLeft            = "user_left"
	ReasonTimeout             = "timeout"
)

// Participant identifies one side of a pairing session.
type Participant struct {
	ConnectionID string
	UserID       string // empty for guests
	Profile      ProfileSnapshot
}

// PairingSession is the live relationship between two matched
// participants. The session manager is its sole mutator.
type PairingSession struct {
	SessionID    string
	A            Participant
	B            Participant
	State        SessionState
	StartedAt    time.Time
	EndedAt      time.Time
	MessageCount int
}

// Other returns the participant opposite to connID, if connID is a member.
func (s *PairingSession) Other(connID string) (Participant, bool) {
	switch connID {
	case s.A.ConnectionID:
		return s.B, true
	case s.B.ConnectionID:
		return s.A, true
	}
	return Participant{}, false
}

// Has reports whether connID belongs to this session.
func (s *PairingSession) Has(connID string) bool {
	return connID == s.A.ConnectionID || connID == s.B.ConnectionID
}

// SessionRecord is the persisted trace of a pairing session, written
// asynchronously for the admin dashboard and moderation evidence.
// It is never read back into live state.
type SessionRecord struct {
	SessionID    string `gorm:"primaryKey"`
	UserAID      string `gorm:"index"`
	UserBID      string `gorm:"index"`
	IsActive     bool
	EndReason    string
	MessageCount int
	StartedAt    time.Time
	EndedAt      time.Time
}
