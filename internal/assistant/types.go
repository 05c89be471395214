// Package assistant implements the HTTP client for the remote assistant
// service (OpenAI Assistants v2 wire protocol). The rest of the application
// consumes exactly seven operations: create-thread, get-thread, post-message,
// create-run, get-run-status, list-thread-messages, and cancel-run.
//
// This file defines the wire-level value types and the run status vocabulary.
package assistant

import "time"

// RunStatus is the remote service's run state vocabulary.
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusCancelled      RunStatus = "cancelled"
	StatusExpired        RunStatus = "expired"
)

// Terminal reports whether the run has reached a final state. The
// requires_action state is non-terminal: this layer does not submit tool
// outputs, so such runs simply age out against the poll budget.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Active reports whether the run may still transition (and therefore blocks
// starting another run on the same thread).
func (s RunStatus) Active() bool { return !s.Terminal() }

// Thread is a remote durable conversation context.
type Thread struct {
	ID        string
	CreatedAt time.Time
}

// Run is one asynchronous assistant execution against a thread.
type Run struct {
	ID        string
	ThreadID  string
	Status    RunStatus
	LastError string
}

// Message is a single thread message, flattened to its first text part.
// Text may still contain citation markers; see StripCitations.
type Message struct {
	ID        string
	Role      string
	Text      string
	CreatedAt time.Time
}

// Roles used on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
