package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes trace events emitted while a research run executes.
type EventType string

const (
	// EventRunStarted is emitted once when a run begins.
	EventRunStarted EventType = "run.started"
	// EventNodeStarted is emitted before a graph node executes.
	EventNodeStarted EventType = "node.started"
	// EventNodeCompleted is emitted after a graph node returned and its update was merged.
	EventNodeCompleted EventType = "node.completed"
	// EventNodeFailed is emitted when a graph node returned an error.
	EventNodeFailed EventType = "node.failed"
	// EventMessage carries a conversation message produced during the run.
	EventMessage EventType = "message"
	// EventRunCompleted is emitted once with the run outcome in Data.
	EventRunCompleted EventType = "run.completed"
)

// Event is an immutable trace record. Graph and Node identify where it was
// produced; nested graphs (supervisor, researchers) report their own graph
// name so a consumer can reconstruct the call tree.
type Event struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	SessionID string         `json:"session_id,omitempty"`
	Type      EventType      `json:"type"`
	Graph     string         `json:"graph,omitempty"`
	Node      string         `json:"node,omitempty"`
	Next      string         `json:"next,omitempty"`
	Message   *Message       `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates an event of the given type bound to a run.
func NewEvent(runID string, typ EventType) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageEvent wraps a conversation message.
func NewMessageEvent(runID string, msg Message) Event {
	ev := NewEvent(runID, EventMessage)
	m := msg.Clone()
	ev.Message = &m

	return ev
}

// IsTerminal reports whether the event closes a run.
func (e Event) IsTerminal() bool { return e.Type == EventRunCompleted }

// NewID returns a random UUID string.
func NewID() string { return uuid.NewString() }
