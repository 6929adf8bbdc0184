package chathub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zn4editz-pixel/z-app-sub003/internal/chathub"
	"github.com/zn4editz-pixel/z-app-sub003/internal/events"
	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

func pairOf(connA, connB string) (models.Participant, models.Participant) {
	return models.Participant{ConnectionID: connA, UserID: "user-" + connA, Profile: models.ProfileSnapshot{DisplayName: connA}},
		models.Participant{ConnectionID: connB, UserID: "user-" + connB, Profile: models.ProfileSnapshot{DisplayName: connB}}
}

func TestSessionCreateAndRelay(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	s, err := m.Create(a, b)
	require.NoError(t, err)
	require.NotEmpty(t, s.SessionID)
	assert.Equal(t, 1, m.CountActive())

	require.NoError(t, m.Relay(s.SessionID, "conn-a", []byte(`"hello"`)))

	var payload models.StrangerMessagePayload
	require.True(t, n.lastOfType("conn-b", models.EventStrangerMessage, &payload))
	assert.Equal(t, s.SessionID, payload.SessionID)
	assert.JSONEq(t, `"hello"`, string(payload.Payload))

	// The sender itself receives nothing.
	assert.False(t, n.lastOfType("conn-a", models.EventStrangerMessage, nil))
}

func TestSessionRelayErrors(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	s, err := m.Create(a, b)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Relay("no-such-session", "conn-a", nil), chathub.ErrSessionNotFound)
	assert.ErrorIs(t, m.Relay(s.SessionID, "conn-x", nil), chathub.ErrNotAParticipant)

	require.NoError(t, m.End(s.SessionID, models.ReasonUserLeft))
	assert.ErrorIs(t, m.Relay(s.SessionID, "conn-a", nil), chathub.ErrSessionEnded)
}

func TestSessionExclusivity(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	_, err := m.Create(a, b)
	require.NoError(t, err)

	// Neither side may enter a second session while the first is active.
	c := models.Participant{ConnectionID: "conn-c"}
	_, err = m.Create(a, c)
	assert.ErrorIs(t, err, chathub.ErrConflictingSession)
	_, err = m.Create(c, b)
	assert.ErrorIs(t, err, chathub.ErrConflictingSession)
	assert.Equal(t, 1, m.CountActive())
}

func TestSessionEndNotifiesBoth(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	s, err := m.Create(a, b)
	require.NoError(t, err)

	require.NoError(t, m.End(s.SessionID, models.ReasonTimeout))

	var payload models.EndedPayload
	require.True(t, n.lastOfType("conn-a", models.EventEnded, &payload))
	assert.Equal(t, models.ReasonTimeout, payload.Reason)
	assert.True(t, n.lastOfType("conn-b", models.EventEnded, nil))

	assert.False(t, m.HasActive("conn-a"))
	assert.False(t, m.HasActive("conn-b"))

	// Ending twice reports the terminal state.
	assert.ErrorIs(t, m.End(s.SessionID, models.ReasonTimeout), chathub.ErrSessionEnded)
}

func TestSessionLeaveNotifiesOnlyRemaining(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	s, err := m.Create(a, b)
	require.NoError(t, err)

	require.NoError(t, m.Leave(s.SessionID, "conn-a"))

	var payload models.EndedPayload
	require.True(t, n.lastOfType("conn-b", models.EventEnded, &payload))
	assert.Equal(t, models.ReasonUserLeft, payload.Reason)
	assert.False(t, n.lastOfType("conn-a", models.EventEnded, nil))

	assert.ErrorIs(t, m.Leave(s.SessionID, "conn-b"), chathub.ErrSessionEnded)
	assert.ErrorIs(t, m.Leave("no-such-session", "conn-a"), chathub.ErrSessionNotFound)
}

func TestSessionLeaveRejectsOutsider(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	s, err := m.Create(a, b)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Leave(s.SessionID, "conn-x"), chathub.ErrNotAParticipant)
	assert.True(t, m.HasActive("conn-a"))
}

func TestSessionEndByConnection(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	_, err := m.Create(a, b)
	require.NoError(t, err)

	assert.True(t, m.EndByConnection("conn-a", models.ReasonPartnerDisconnected))

	var payload models.EndedPayload
	require.True(t, n.lastOfType("conn-b", models.EventEnded, &payload))
	assert.Equal(t, models.ReasonPartnerDisconnected, payload.Reason)

	assert.Equal(t, 0, m.CountActive())
	assert.False(t, m.EndByConnection("conn-a", models.ReasonPartnerDisconnected))
}

func TestSessionParticipantsSurviveEnd(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	s, err := m.Create(a, b)
	require.NoError(t, err)
	require.NoError(t, m.End(s.SessionID, models.ReasonUserLeft))

	// Reports filed after the session ended must still resolve the
	// partner.
	gotA, gotB, ok := m.Participants(s.SessionID)
	require.True(t, ok)
	assert.Equal(t, "user-conn-a", gotA.UserID)
	assert.Equal(t, "user-conn-b", gotB.UserID)
}

func TestSessionPruneEnded(t *testing.T) {
	n := newRecordingNotifier()
	m := chathub.NewSessionManager(n, nil, nil)

	a, b := pairOf("conn-a", "conn-b")
	ended, err := m.Create(a, b)
	require.NoError(t, err)
	require.NoError(t, m.End(ended.SessionID, models.ReasonUserLeft))

	c, d := pairOf("conn-c", "conn-d")
	active, err := m.Create(c, d)
	require.NoError(t, err)

	m.PruneEnded(0)

	_, _, ok := m.Participants(ended.SessionID)
	assert.False(t, ok)
	_, _, ok = m.Participants(active.SessionID)
	assert.True(t, ok)
	assert.ErrorIs(t, m.Relay(ended.SessionID, "conn-a", nil), chathub.ErrSessionNotFound)
}

func TestSessionPersistenceAndAnalytics(t *testing.T) {
	n := newRecordingNotifier()
	store := new(MockSessionStore)
	analytics := new(MockAnalytics)
	m := chathub.NewSessionManager(n, store, analytics)

	saved := make(chan struct{})
	closed := make(chan struct{})
	published := make(chan struct{})
	store.On("SaveSessionRecord", mock.AnythingOfType("*models.SessionRecord")).Return(nil).Run(func(mock.Arguments) { close(saved) })
	store.On("CloseSessionRecord", mock.AnythingOfType("string"), models.ReasonUserLeft, 2).Return(nil).Run(func(mock.Arguments) { close(closed) })
	analytics.On("PublishSessionEnded", mock.MatchedBy(func(ev events.SessionEnded) bool {
		return ev.Reason == models.ReasonUserLeft && ev.MessageCount == 2
	})).Return(nil).Run(func(mock.Arguments) { close(published) })

	a, b := pairOf("conn-a", "conn-b")
	s, err := m.Create(a, b)
	require.NoError(t, err)
	require.NoError(t, m.Relay(s.SessionID, "conn-a", []byte(`"hi"`)))
	require.NoError(t, m.Relay(s.SessionID, "conn-b", []byte(`"hey"`)))
	require.NoError(t, m.Leave(s.SessionID, "conn-a"))

	// Persistence runs off the hot path.
	for _, ch := range []chan struct{}{saved, closed, published} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for async persistence")
		}
	}

	store.AssertExpectations(t)
	analytics.AssertExpectations(t)
}
