// Package registry is the authoritative map from user identity to live
// realtime connections. It is the single source of truth for "is user X
// online"; presence transitions are emitted exactly once per 0<->1 edge
// of a user's connection set.
package registry

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

// PresenceSink receives online/offline transitions. Implemented by the
// presence publisher; may be nil (transitions are then dropped).
type PresenceSink interface {
	Publish(userID string, status models.PresenceStatus)
}

// Connection is the record kept per live transport connection.
type Connection struct {
	UserID      string // empty for guests
	ConnectedAt time.Time
}

// Registry tracks live connections. A user may hold several connections
// (multiple tabs); they are online iff the set is non-empty.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Connection          // connectionID -> record
	byUser map[string]map[string]struct{} // userID -> set of connectionIDs

	sink PresenceSink
}

func New() *Registry {
	return &Registry{
		conns:  make(map[string]Connection),
		byUser: make(map[string]map[string]struct{}),
	}
}

// SetPresenceSink wires the publisher. Must be called before the first
// Register; the hub does this at startup.
func (r *Registry) SetPresenceSink(sink PresenceSink) {
	r.sink = sink
}

// Register adds connID to the user's connection set. Registering the
// same pair twice is a no-op. Guests (empty userID) are tracked but
// never produce presence events.
func (r *Registry) Register(userID, connID string) {
	r.mu.Lock()
	if _, ok := r.conns[connID]; ok {
		r.mu.Unlock()
		return
	}
	r.conns[connID] = Connection{UserID: userID, ConnectedAt: time.Now()}

	wentOnline := false
	if userID != "" {
		set, ok := r.byUser[userID]
		if !ok {
			set = make(map[string]struct{})
			r.byUser[userID] = set
			wentOnline = true
		}
		set[connID] = struct{}{}
	}
	r.mu.Unlock()

	log.Debug().Str("user_id", userID).Str("conn_id", connID).Msg("connection registered")

	// Publishing happens outside the lock; the transition was decided
	// atomically above, so the exactly-once contract holds.
	if wentOnline && r.sink != nil {
		r.sink.Publish(userID, models.StatusOnline)
	}
}

// Unregister removes the mapping for connID. Unknown connIDs are a
// successful no-op: disconnect events may legitimately arrive twice.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	rec, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)

	wentOffline := false
	if rec.UserID != "" {
		if set, ok := r.byUser[rec.UserID]; ok {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.byUser, rec.UserID)
				wentOffline = true
			}
		}
	}
	r.mu.Unlock()

	log.Debug().Str("user_id", rec.UserID).Str("conn_id", connID).Msg("connection unregistered")

	if wentOffline && r.sink != nil {
		r.sink.Publish(rec.UserID, models.StatusOffline)
	}
}

// IsOnline reports whether the user holds at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// Owner returns the userID bound to connID, if the connection is live.
func (r *Registry) Owner(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.conns[connID]
	return rec.UserID, ok
}

// ConnectionsOf returns the live connection IDs of a user.
func (r *Registry) ConnectionsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

// ListOnline returns every online userID. Empty sets are removed
// eagerly, so this is O(online users), not O(all users).
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		out = append(out, userID)
	}
	return out
}

// CountOnline returns the number of online users.
func (r *Registry) CountOnline() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// CountConnections returns the number of live connections, guests included.
func (r *Registry) CountConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
