package chathub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/events"
	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

// Notifier delivers an event to one connection. Implemented by the hub.
type Notifier interface {
	SendToConnection(connID string, ev models.Event)
}

// SessionStore persists session records for the admin dashboard and
// moderation evidence. Writes happen off the critical path and are
// never read back into live state.
type SessionStore interface {
	SaveSessionRecord(rec *models.SessionRecord) error
	CloseSessionRecord(sessionID, reason string, messageCount int) error
}

// Analytics receives a session.ended event after teardown.
type Analytics interface {
	PublishSessionEnded(ev events.SessionEnded) error
}

// SessionManager owns every pairing session and enforces the
// one-active-session-per-connection invariant. It is the sole mutator
// of session state.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*models.PairingSession
	byConn   map[string]string // connectionID -> active sessionID

	notifier  Notifier
	store     SessionStore // may be nil
	analytics Analytics    // may be nil
}

func NewSessionManager(notifier Notifier, store SessionStore, analytics Analytics) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*models.PairingSession),
		byConn:    make(map[string]string),
		notifier:  notifier,
		store:     store,
		analytics: analytics,
	}
}

// HasActive reports whether connID belongs to an active session.
func (m *SessionManager) HasActive(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byConn[connID]
	return ok
}

// Participants returns both sides of a session, active or ended.
func (m *SessionManager) Participants(sessionID string) (a, b models.Participant, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, found := m.sessions[sessionID]
	if !found {
		return models.Participant{}, models.Participant{}, false
	}
	return s.A, s.B, true
}

// CountActive returns the number of active sessions.
func (m *SessionManager) CountActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byConn) / 2
}

// Create starts a new session between two participants. Invoked only by
// the matchmaker; the ErrConflictingSession check is defensive and
// should never fire while the queue invariants hold.
func (m *SessionManager) Create(a, b models.Participant) (*models.PairingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.byConn[a.ConnectionID]; busy {
		return nil, ErrConflictingSession
	}
	if _, busy := m.byConn[b.ConnectionID]; busy {
		return nil, ErrConflictingSession
	}

	s := &models.PairingSession{
		SessionID: uuid.New().String(),
		A:         a,
		B:         b,
		State:     models.SessionActive,
		StartedAt: time.Now(),
	}
	m.sessions[s.SessionID] = s
	m.byConn[a.ConnectionID] = s.SessionID
	m.byConn[b.ConnectionID] = s.SessionID

	if m.store != nil {
		rec := &models.SessionRecord{
			SessionID: s.SessionID,
			UserAID:   a.UserID,
			UserBID:   b.UserID,
			IsActive:  true,
			StartedAt: s.StartedAt,
		}
		go func() {
			if err := m.store.SaveSessionRecord(rec); err != nil {
				log.Error().Err(err).Str("session_id", rec.SessionID).Msg("failed to persist session record")
			}
		}()
	}

	log.Info().Str("session_id", s.SessionID).Str("conn_a", a.ConnectionID).Str("conn_b", b.ConnectionID).Msg("session started")
	return s, nil
}

// Relay forwards payload to the other participant of the session.
func (m *SessionManager) Relay(sessionID, fromConnID string, payload []byte) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if !s.Has(fromConnID) {
		m.mu.Unlock()
		return ErrNotAParticipant
	}
	if s.State == models.SessionEnded {
		m.mu.Unlock()
		return ErrSessionEnded
	}
	s.MessageCount++
	other, _ := s.Other(fromConnID)
	m.mu.Unlock()

	m.notifier.SendToConnection(other.ConnectionID, models.NewEvent(models.EventStrangerMessage, models.StrangerMessagePayload{
		SessionID: sessionID,
		Payload:   payload,
	}))
	return nil
}

// End terminates a session by id and notifies both participants.
func (m *SessionManager) End(sessionID, reason string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if s.State == models.SessionEnded {
		m.mu.Unlock()
		return ErrSessionEnded
	}
	m.endLocked(s)
	m.mu.Unlock()

	m.finish(s, reason, s.A.ConnectionID, s.B.ConnectionID)
	return nil
}

// Leave ends the session on behalf of one participant. Only the
// remaining side is notified; the leaver asked for this.
func (m *SessionManager) Leave(sessionID, connID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if !s.Has(connID) {
		m.mu.Unlock()
		return ErrNotAParticipant
	}
	if s.State == models.SessionEnded {
		m.mu.Unlock()
		return ErrSessionEnded
	}
	m.endLocked(s)
	other, _ := s.Other(connID)
	m.mu.Unlock()

	m.finish(s, models.ReasonUserLeft, other.ConnectionID)
	return nil
}

// EndByConnection tears down the active session containing connID, if
// any. Called synchronously from disconnect handling so an Active
// session never outlives its participants. Returns false when the
// connection had no session.
func (m *SessionManager) EndByConnection(connID, reason string) bool {
	m.mu.Lock()
	sessionID, ok := m.byConn[connID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	s := m.sessions[sessionID]
	m.endLocked(s)
	other, _ := s.Other(connID)
	m.mu.Unlock()

	m.finish(s, reason, other.ConnectionID)
	return true
}

// endLocked transitions the session to Ended and frees both
// connections so they may re-queue. Caller holds the lock.
func (m *SessionManager) endLocked(s *models.PairingSession) {
	s.State = models.SessionEnded
	s.EndedAt = time.Now()
	delete(m.byConn, s.A.ConnectionID)
	delete(m.byConn, s.B.ConnectionID)
}

// finish runs the out-of-lock half of a teardown: notifications,
// persistence, analytics.
func (m *SessionManager) finish(s *models.PairingSession, reason string, notifyConns ...string) {
	ev := models.NewEvent(models.EventEnded, models.EndedPayload{
		SessionID: s.SessionID,
		Reason:    reason,
	})
	for _, connID := range notifyConns {
		m.notifier.SendToConnection(connID, ev)
	}

	log.Info().Str("session_id", s.SessionID).Str("reason", reason).Msg("session ended")

	messageCount := s.MessageCount
	go func() {
		if m.store != nil {
			if err := m.store.CloseSessionRecord(s.SessionID, reason, messageCount); err != nil {
				log.Error().Err(err).Str("session_id", s.SessionID).Msg("failed to close session record")
			}
		}
		if m.analytics != nil {
			err := m.analytics.PublishSessionEnded(events.SessionEnded{
				SessionID:       s.SessionID,
				UserAID:         s.A.UserID,
				UserBID:         s.B.UserID,
				Reason:          reason,
				MessageCount:    messageCount,
				StartedAt:       s.StartedAt.UTC().Format(time.RFC3339),
				EndedAt:         s.EndedAt.UTC().Format(time.RFC3339),
				DurationSeconds: int64(s.EndedAt.Sub(s.StartedAt).Seconds()),
			})
			if err != nil {
				log.Warn().Err(err).Str("session_id", s.SessionID).Msg("failed to publish session analytics")
			}
		}
	}()
}

// PruneEnded drops ended sessions older than the retention window.
// They are kept around only so late relay calls get ErrSessionEnded
// instead of ErrSessionNotFound and reports can still resolve the
// partner.
func (m *SessionManager) PruneEnded(retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.State == models.SessionEnded && s.EndedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
