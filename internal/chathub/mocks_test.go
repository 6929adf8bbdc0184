package chathub_test

import (
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/zn4editz-pixel/z-app-sub003/internal/events"
	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
)

// recordingNotifier captures every event routed to a connection.
type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]models.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(map[string][]models.Event)}
}

func (n *recordingNotifier) SendToConnection(connID string, ev models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[connID] = append(n.sent[connID], ev)
}

func (n *recordingNotifier) eventsFor(connID string) []models.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Event(nil), n.sent[connID]...)
}

// lastOfType returns the most recent event of the given type sent to
// connID, decoded into out if out is non-nil.
func (n *recordingNotifier) lastOfType(connID, eventType string, out any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	evs := n.sent[connID]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == eventType {
			if out != nil {
				_ = json.Unmarshal(evs[i].Data, out)
			}
			return true
		}
	}
	return false
}

func (n *recordingNotifier) countOfType(connID, eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, ev := range n.sent[connID] {
		if ev.Type == eventType {
			count++
		}
	}
	return count
}

// MockSessionStore is a testify mock of the SessionStore interface.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) SaveSessionRecord(rec *models.SessionRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockSessionStore) CloseSessionRecord(sessionID, reason string, messageCount int) error {
	args := m.Called(sessionID, reason, messageCount)
	return args.Error(0)
}

// MockAnalytics is a testify mock of the Analytics interface.
type MockAnalytics struct {
	mock.Mock
}

func (m *MockAnalytics) PublishSessionEnded(ev events.SessionEnded) error {
	args := m.Called(ev)
	return args.Error(0)
}

// MockProfiles is a testify mock of the ProfileSource interface.
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockProfiles) IsUserBanned(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

// mockClient is a test double for the Client interface.
type mockClient struct {
	connID string
	userID string

	mu     sync.Mutex
	recv   []models.Event
	closed bool
}

func newMockClient(connID, userID string) *mockClient {
	return &mockClient{connID: connID, userID: userID}
}

func (c *mockClient) GetConnectionID() string { return c.connID }
func (c *mockClient) GetUserID() string       { return c.userID }

func (c *mockClient) Send(ev models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recv = append(c.recv, ev)
}

func (c *mockClient) Run() {}

func (c *mockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockClient) received() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.recv...)
}

func (c *mockClient) lastOfType(eventType string, out any) bool {
	evs := c.received()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == eventType {
			if out != nil {
				_ = json.Unmarshal(evs[i].Data, out)
			}
			return true
		}
	}
	return false
}

func (c *mockClient) countOfType(eventType string) int {
	count := 0
	for _, ev := range c.received() {
		if ev.Type == eventType {
			count++
		}
	}
	return count
}

// fakeProfiles resolves every user id to a minimal unbanned account.
type fakeProfiles struct{}

func (fakeProfiles) GetUserByID(id string) (*models.User, error) {
	return &models.User{ID: id, DisplayName: "u-" + id, ShowUsername: true, ShowAvatar: true}, nil
}

func (fakeProfiles) IsUserBanned(string) (bool, error) { return false, nil }

// captureReportSink hands filed reports to the test over a channel,
// since the hub dispatches them asynchronously.
type captureReportSink struct {
	filed chan *models.Report
}

func (s *captureReportSink) HandleReport(report *models.Report) error {
	s.filed <- report
	return nil
}

// noopMessenger satisfies DirectMessenger for tests that only exercise
// the hub's own guards.
type noopMessenger struct{}

func (noopMessenger) Send(senderID, recipientID string, payload json.RawMessage) (*models.DirectMessage, error) {
	return &models.DirectMessage{SenderID: senderID, RecipientID: recipientID, Payload: string(payload)}, nil
}
