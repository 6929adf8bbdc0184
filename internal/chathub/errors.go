package chathub

import "errors"

// User-state conflicts on join. These are rejected operations, not
// system faults.
var (
	ErrAlreadyQueued    = errors.New("connection is already waiting in the queue")
	ErrAlreadyInSession = errors.New("connection is already in an active session")
)

// Session-routing errors surfaced to the transport layer.
var (
	ErrConflictingSession = errors.New("a participant already has an active session")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotAParticipant    = errors.New("connection is not a session participant")
	ErrSessionEnded       = errors.New("session has already ended")
)
