package chathub

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

// WaitingGauge mirrors the queue into Redis so the admin dashboard can
// read its depth. Purely observational: the matcher never consults it.
type WaitingGauge interface {
	AddWaiting(connID string) error
	RemoveWaiting(connID string) error
}

// Matchmaker holds participants waiting for a random partner and pairs
// them. The queue is purely in-memory; on restart everyone re-joins.
//
// All mutations happen under one lock, which is what makes the
// guarantees hold: two concurrent joins can never select the same
// partner, and a leave racing an in-flight match sees either the entry
// still waiting or already matched, never a half state.
type Matchmaker struct {
	mu      sync.Mutex
	queue   []*models.WaitingParticipant // FIFO, oldest first
	waiting map[string]struct{}          // connectionIDs currently queued

	sessions *SessionManager
	notifier Notifier
	gauge    WaitingGauge // may be nil
}

func NewMatchmaker(notifier Notifier, sessions *SessionManager, gauge WaitingGauge) *Matchmaker {
	return &Matchmaker{
		queue:    make([]*models.WaitingParticipant, 0),
		waiting:  make(map[string]struct{}),
		sessions: sessions,
		notifier: notifier,
		gauge:    gauge,
	}
}

// Join enqueues a participant and immediately attempts matching from
// the head of the queue. The profile snapshot must already be resolved;
// no I/O happens inside the critical section.
func (m *Matchmaker) Join(p models.WaitingParticipant) error {
	if p.EnqueuedAt.IsZero() {
		p.EnqueuedAt = time.Now()
	}

	m.mu.Lock()
	if _, queued := m.waiting[p.ConnectionID]; queued {
		m.mu.Unlock()
		return ErrAlreadyQueued
	}
	if m.sessions.HasActive(p.ConnectionID) {
		m.mu.Unlock()
		return ErrAlreadyInSession
	}

	m.queue = append(m.queue, &p)
	m.waiting[p.ConnectionID] = struct{}{}

	matched := m.matchLocked()
	_, stillWaiting := m.waiting[p.ConnectionID]
	m.mu.Unlock()

	m.updateGauge(p.ConnectionID, matched)

	// Matched notifications for every pair concluded in this pass, then
	// the waiting ack if the joiner is still at large.
	for _, s := range matched {
		m.notifier.SendToConnection(s.A.ConnectionID, models.NewEvent(models.EventMatched, models.MatchedPayload{
			SessionID: s.SessionID,
			Partner:   s.B.Profile.Sanitized(),
		}))
		m.notifier.SendToConnection(s.B.ConnectionID, models.NewEvent(models.EventMatched, models.MatchedPayload{
			SessionID: s.SessionID,
			Partner:   s.A.Profile.Sanitized(),
		}))
	}
	if stillWaiting {
		m.notifier.SendToConnection(p.ConnectionID, models.NewEvent(models.EventWaiting, nil))
	}
	return nil
}

// Leave removes a waiting participant. A no-op when the connection is
// not waiting, which is exactly what happens when a leave races a
// match that already committed: the match stands.
func (m *Matchmaker) Leave(connID string) bool {
	m.mu.Lock()
	if _, queued := m.waiting[connID]; !queued {
		m.mu.Unlock()
		return false
	}
	m.removeLocked(connID)
	m.mu.Unlock()

	if m.gauge != nil {
		go func() {
			if err := m.gauge.RemoveWaiting(connID); err != nil {
				log.Warn().Err(err).Msg("waiting gauge remove failed")
			}
		}()
	}
	return true
}

// CountWaiting returns the queue depth.
func (m *Matchmaker) CountWaiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// matchLocked repeatedly matches from the head of the queue. The
// fairness contract: the oldest waiting participant always takes the A
// role, and is paired with the earliest-enqueued mutually-compatible B.
// If the head has no compatible partner it stays at the head; matching
// re-runs from the head on every new arrival. Caller holds the lock.
func (m *Matchmaker) matchLocked() []*models.PairingSession {
	var created []*models.PairingSession

	for len(m.queue) >= 2 {
		a := m.queue[0]

		idx := -1
		for i := 1; i < len(m.queue); i++ {
			if compatible(a, m.queue[i]) {
				idx = i
				break
			}
		}
		if idx < 0 {
			break // head stays; no match yet
		}

		b := m.queue[idx]
		s, err := m.sessions.Create(
			models.Participant{ConnectionID: a.ConnectionID, UserID: a.UserID, Profile: a.Profile},
			models.Participant{ConnectionID: b.ConnectionID, UserID: b.UserID, Profile: b.Profile},
		)
		if err != nil {
			// Defensive: cannot happen while the queue invariants hold.
			log.Error().Err(err).Str("conn_a", a.ConnectionID).Str("conn_b", b.ConnectionID).Msg("session create rejected during matching")
			break
		}

		m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
		m.queue = m.queue[1:]
		delete(m.waiting, a.ConnectionID)
		delete(m.waiting, b.ConnectionID)
		created = append(created, s)
	}
	return created
}

func (m *Matchmaker) removeLocked(connID string) {
	delete(m.waiting, connID)
	for i, p := range m.queue {
		if p.ConnectionID == connID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// updateGauge mirrors this pass's queue changes into Redis, off the
// hot path.
func (m *Matchmaker) updateGauge(joined string, matched []*models.PairingSession) {
	if m.gauge == nil {
		return
	}
	go func() {
		if err := m.gauge.AddWaiting(joined); err != nil {
			log.Warn().Err(err).Msg("waiting gauge add failed")
		}
		for _, s := range matched {
			for _, connID := range []string{s.A.ConnectionID, s.B.ConnectionID} {
				if err := m.gauge.RemoveWaiting(connID); err != nil {
					log.Warn().Err(err).Msg("waiting gauge remove failed")
				}
			}
		}
	}()
}

// compatible applies the always-on guards plus both sides' criteria.
func compatible(a, b *models.WaitingParticipant) bool {
	if a.ConnectionID == b.ConnectionID {
		return false
	}
	if a.UserID != "" && a.UserID == b.UserID {
		return false // same user on two tabs
	}
	return a.Criteria.Allows(b.Profile) && b.Criteria.Allows(a.Profile)
}
