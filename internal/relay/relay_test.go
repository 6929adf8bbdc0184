package relay_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
	"github.com/zn4editz-pixel/z-app-sub003/internal/relay"
)

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) AreFriends(a, b string) (bool, error) {
	args := m.Called(a, b)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageStore) SaveDirectMessage(msg *models.DirectMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockMessageStore) ListMessagesSince(userID string, sinceID uint, limit int) ([]models.DirectMessage, error) {
	args := m.Called(userID, sinceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DirectMessage), args.Error(1)
}

// fakePresence marks a fixed set of users as online.
type fakePresence map[string]bool

func (f fakePresence) IsOnline(userID string) bool { return f[userID] }

// collectingSender records events pushed to users.
type collectingSender struct {
	mu   sync.Mutex
	sent map[string][]models.Event
}

func newCollectingSender() *collectingSender {
	return &collectingSender{sent: make(map[string][]models.Event)}
}

func (s *collectingSender) SendToUser(userID string, ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[userID] = append(s.sent[userID], ev)
}

func (s *collectingSender) eventsFor(userID string) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event(nil), s.sent[userID]...)
}

func TestSendDeliversToOnlineFriend(t *testing.T) {
	store := new(MockMessageStore)
	sender := newCollectingSender()
	r := relay.New(store, fakePresence{"user-b": true}, sender, 100)

	store.On("AreFriends", "user-a", "user-b").Return(true, nil)
	store.On("SaveDirectMessage", mock.AnythingOfType("*models.DirectMessage")).Return(nil)

	msg, err := r.Send("user-a", "user-b", json.RawMessage(`"hello"`))
	require.NoError(t, err)
	assert.True(t, msg.Delivered)

	events := sender.eventsFor("user-b")
	require.Len(t, events, 1)
	assert.Equal(t, models.EventDirectMessage, events[0].Type)

	var payload models.DirectMessagePayload
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.Equal(t, "user-a", payload.From)
	assert.JSONEq(t, `"hello"`, string(payload.Payload))

	store.AssertExpectations(t)
}

func TestSendPersistsForOfflineFriend(t *testing.T) {
	store := new(MockMessageStore)
	sender := newCollectingSender()
	r := relay.New(store, fakePresence{}, sender, 100)

	store.On("AreFriends", "user-a", "user-b").Return(true, nil)
	store.On("SaveDirectMessage", mock.MatchedBy(func(msg *models.DirectMessage) bool {
		return msg.SenderID == "user-a" && msg.RecipientID == "user-b" && !msg.Delivered
	})).Return(nil)

	msg, err := r.Send("user-a", "user-b", json.RawMessage(`"hello"`))
	require.NoError(t, err)
	assert.False(t, msg.Delivered)
	assert.Empty(t, sender.eventsFor("user-b"))

	store.AssertExpectations(t)
}

func TestSendRejectsNonFriends(t *testing.T) {
	store := new(MockMessageStore)
	sender := newCollectingSender()
	r := relay.New(store, fakePresence{"user-b": true}, sender, 100)

	store.On("AreFriends", "user-a", "user-b").Return(false, nil)

	_, err := r.Send("user-a", "user-b", json.RawMessage(`"hello"`))
	assert.ErrorIs(t, err, relay.ErrNotFriends)
	assert.Empty(t, sender.eventsFor("user-b"))
	store.AssertNotCalled(t, "SaveDirectMessage", mock.Anything)
}

func TestSendRejectsBadRecipients(t *testing.T) {
	store := new(MockMessageStore)
	r := relay.New(store, fakePresence{}, newCollectingSender(), 100)

	_, err := r.Send("user-a", "user-a", nil)
	assert.ErrorIs(t, err, relay.ErrBadRecipient)
	_, err = r.Send("", "user-b", nil)
	assert.ErrorIs(t, err, relay.ErrBadRecipient)
	_, err = r.Send("user-a", "", nil)
	assert.ErrorIs(t, err, relay.ErrBadRecipient)
	store.AssertNotCalled(t, "AreFriends", mock.Anything, mock.Anything)
}

func TestSendSurfacesStorageFailure(t *testing.T) {
	store := new(MockMessageStore)
	sender := newCollectingSender()
	r := relay.New(store, fakePresence{"user-b": true}, sender, 100)

	store.On("AreFriends", "user-a", "user-b").Return(true, nil)
	store.On("SaveDirectMessage", mock.Anything).Return(errors.New("db down"))

	_, err := r.Send("user-a", "user-b", json.RawMessage(`"hello"`))
	require.Error(t, err)
	// Nothing is pushed when persistence failed.
	assert.Empty(t, sender.eventsFor("user-b"))
}

func TestListSinceUsesConfiguredLimit(t *testing.T) {
	store := new(MockMessageStore)
	r := relay.New(store, fakePresence{}, newCollectingSender(), 25)

	want := []models.DirectMessage{{SenderID: "user-a", RecipientID: "user-b", Payload: `"hi"`}}
	store.On("ListMessagesSince", "user-b", uint(7), 25).Return(want, nil)

	got, err := r.ListSince("user-b", 7)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	store.AssertExpectations(t)
}
