package chathub

import "github.com/zn4editz-pixel/z-app-sub003/internal/models"

// Client is the interface for one live realtime connection. It
// abstracts the transport so the hub, matchmaker, and session manager
// can be tested without a real WebSocket.
type Client interface {
	// GetConnectionID returns the unique id of this transport connection.
	GetConnectionID() string
	// GetUserID returns the authenticated user's id, or "" for guests.
	GetUserID() string

	// Send queues an event for delivery to this client. It never
	// blocks; events for slow or closed clients are dropped.
	Send(ev models.Event)

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the client down. Safe to call more than once.
	Close()
}
