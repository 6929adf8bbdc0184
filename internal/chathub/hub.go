// Package chathub ties the realtime core together: the client
// connections, the stranger matchmaking queue, and the pairing session
// manager. Routes never touch the queue or session table directly;
// everything goes through the operations defined here.
package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zn4editz-pixel/z-app-sub003/internal/config"
	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
	"github.com/zn4editz-pixel/z-app-sub003/internal/registry"
)

// ProfileSource resolves profile data and ban state at joinQueue time,
// before the matchmaker's critical section.
type ProfileSource interface {
	GetUserByID(id string) (*models.User, error)
	IsUserBanned(userID string) (bool, error)
}

// ReportSink receives moderation reports filed from inside a session.
type ReportSink interface {
	HandleReport(report *models.Report) error
}

// DirectMessenger forwards friend-to-friend messages; implemented by
// the relay service.
type DirectMessenger interface {
	Send(senderID, recipientID string, payload json.RawMessage) (*models.DirectMessage, error)
}

// Hub owns the live client set and dispatches inbound realtime events.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client // by connectionID

	RegisterCh   chan Client
	UnregisterCh chan Client

	Registry   *registry.Registry
	Matchmaker *Matchmaker
	Sessions   *SessionManager

	profiles ProfileSource
	reports  ReportSink
	dms      DirectMessenger
}

// NewHub builds the hub together with its matchmaker and session
// manager. store, gauge, and analytics may be nil.
func NewHub(reg *registry.Registry, profiles ProfileSource, store SessionStore, gauge WaitingGauge, analytics Analytics) *Hub {
	h := &Hub{
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Registry:     reg,
		profiles:     profiles,
	}
	h.Sessions = NewSessionManager(h, store, analytics)
	h.Matchmaker = NewMatchmaker(h, h.Sessions, gauge)
	return h
}

func (h *Hub) SetReportSink(r ReportSink) { h.reports = r }

func (h *Hub) SetDirectMessenger(d DirectMessenger) { h.dms = d }

// Run is the hub's main loop: client lifecycle plus the ended-session
// janitor. Meant to run as a goroutine for the process lifetime.
func (h *Hub) Run() {
	log.Info().Msg("chat hub started")
	janitor := time.NewTicker(10 * time.Minute)
	defer janitor.Stop()

	for {
		select {
		case c := <-h.RegisterCh:
			h.register(c)
		case c := <-h.UnregisterCh:
			h.Disconnect(c)
		case <-janitor.C:
			h.Sessions.PruneEnded(config.EndedSessionRetention)
		}
	}
}

func (h *Hub) register(c Client) {
	h.mu.Lock()
	h.clients[c.GetConnectionID()] = c
	h.mu.Unlock()

	h.Registry.Register(c.GetUserID(), c.GetConnectionID())
}

// Disconnect runs the full teardown for a connection, in an order that
// keeps the invariants: leave the queue first (so an in-flight match
// can no longer pick this connection), then end any session it is in,
// then drop it from the registry. Cleanup always completes; duplicate
// disconnects are no-ops at every step.
func (h *Hub) Disconnect(c Client) {
	connID := c.GetConnectionID()

	h.Matchmaker.Leave(connID)
	h.Sessions.EndByConnection(connID, models.ReasonPartnerDisconnected)
	h.Registry.Unregister(connID)

	h.mu.Lock()
	delete(h.clients, connID)
	h.mu.Unlock()

	c.Close()
}

// SendToConnection implements Notifier.
func (h *Hub) SendToConnection(connID string, ev models.Event) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.Send(ev)
	}
}

// SendToUser delivers an event to every live connection of a user.
func (h *Hub) SendToUser(userID string, ev models.Event) {
	for _, connID := range h.Registry.ConnectionsOf(userID) {
		h.SendToConnection(connID, ev)
	}
}

// HandleInbound dispatches one decoded client event. Called from each
// client's read pump; every branch is safe for concurrent use.
func (h *Hub) HandleInbound(c Client, ev models.Event) {
	switch ev.Type {
	case models.EventJoinQueue:
		h.handleJoinQueue(c, ev.Data)
	case models.EventLeaveQueue:
		h.Matchmaker.Leave(c.GetConnectionID())
	case models.EventRelay:
		h.handleRelay(c, ev.Data)
	case models.EventEndSession:
		h.handleEndSession(c, ev.Data)
	case models.EventReport:
		h.handleReport(c, ev.Data)
	case models.EventSendDM:
		h.handleSendDM(c, ev.Data)
	default:
		h.sendError(c, "unknown_event", "unsupported event type")
	}
}

func (h *Hub) handleJoinQueue(c Client, data json.RawMessage) {
	var p models.JoinQueuePayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			h.sendError(c, "bad_payload", "malformed joinQueue payload")
			return
		}
	}

	// Resolve the profile snapshot before entering the queue: the
	// matching critical section never does I/O.
	var snapshot models.ProfileSnapshot
	userID := c.GetUserID()
	if userID != "" {
		banned, err := h.profiles.IsUserBanned(userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("ban check failed")
		}
		if banned {
			h.sendError(c, "banned", "account is temporarily banned")
			return
		}
		u, err := h.profiles.GetUserByID(userID)
		if err != nil {
			h.sendError(c, "profile_unavailable", "could not load profile")
			return
		}
		snapshot = models.SnapshotUser(u)
	} else {
		// Guests carry whatever the handshake supplied; the verified
		// badge is never granted to them.
		snapshot = models.ProfileSnapshot{
			DisplayName: p.DisplayName,
			Gender:      p.Gender,
			Interests:   p.Interests,
		}
	}

	err := h.Matchmaker.Join(models.WaitingParticipant{
		ConnectionID: c.GetConnectionID(),
		UserID:       userID,
		Profile:      snapshot,
		Criteria:     p.Criteria,
		EnqueuedAt:   time.Now(),
	})
	switch err {
	case nil:
	case ErrAlreadyQueued:
		h.sendError(c, "already_queued", "already waiting for a partner")
	case ErrAlreadyInSession:
		h.sendError(c, "already_in_session", "leave the current chat first")
	default:
		h.sendError(c, "join_failed", err.Error())
	}
}

func (h *Hub) handleRelay(c Client, data json.RawMessage) {
	var p models.RelayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "bad_payload", "malformed relay payload")
		return
	}
	switch err := h.Sessions.Relay(p.SessionID, c.GetConnectionID(), p.Payload); err {
	case nil:
	case ErrSessionNotFound:
		h.sendError(c, "session_not_found", "no such session")
	case ErrNotAParticipant:
		h.sendError(c, "not_a_participant", "not a member of this session")
	case ErrSessionEnded:
		h.sendError(c, "session_ended", "session has ended")
	default:
		h.sendError(c, "relay_failed", err.Error())
	}
}

func (h *Hub) handleEndSession(c Client, data json.RawMessage) {
	var p models.EndSessionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "bad_payload", "malformed end payload")
		return
	}
	switch err := h.Sessions.Leave(p.SessionID, c.GetConnectionID()); err {
	case nil, ErrSessionEnded: // ending twice is fine from the client's view
	case ErrSessionNotFound:
		h.sendError(c, "session_not_found", "no such session")
	case ErrNotAParticipant:
		h.sendError(c, "not_a_participant", "not a member of this session")
	}
}

func (h *Hub) handleReport(c Client, data json.RawMessage) {
	if h.reports == nil {
		h.sendError(c, "unsupported", "reporting is not enabled")
		return
	}
	var p models.ReportPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "bad_payload", "malformed report payload")
		return
	}

	a, b, ok := h.Sessions.Participants(p.SessionID)
	if !ok {
		h.sendError(c, "session_not_found", "no such session")
		return
	}
	connID := c.GetConnectionID()
	var reported models.Participant
	switch connID {
	case a.ConnectionID:
		reported = b
	case b.ConnectionID:
		reported = a
	default:
		h.sendError(c, "not_a_participant", "not a member of this session")
		return
	}
	if reported.UserID == "" {
		h.sendError(c, "partner_anonymous", "guest partners cannot be reported")
		return
	}

	report := &models.Report{
		ReporterID:     c.GetUserID(),
		ReportedUserID: reported.UserID,
		SessionID:      p.SessionID,
		Category:       p.Category,
		Comment:        p.Comment,
		Status:         models.ReportStatusNew,
	}
	go func() {
		if err := h.reports.HandleReport(report); err != nil {
			log.Error().Err(err).Str("session_id", p.SessionID).Msg("report handling failed")
		}
	}()
}

func (h *Hub) handleSendDM(c Client, data json.RawMessage) {
	if h.dms == nil {
		h.sendError(c, "unsupported", "direct messages are not enabled")
		return
	}
	if c.GetUserID() == "" {
		h.sendError(c, "auth_required", "sign in to send direct messages")
		return
	}
	var p models.SendDMPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "bad_payload", "malformed dm payload")
		return
	}
	if _, err := h.dms.Send(c.GetUserID(), p.To, p.Payload); err != nil {
		h.sendError(c, "dm_failed", err.Error())
	}
}

func (h *Hub) sendError(c Client, code, message string) {
	c.Send(models.NewEvent(models.EventError, models.ErrorPayload{Code: code, Message: message}))
}
