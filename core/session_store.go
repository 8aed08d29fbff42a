package core

import "context"

// SessionStore persists the conversation transcript of a session so a
// clarification answer can continue the conversation in a later run.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Load returns the transcript of the session (empty for unknown sessions).
	Load(ctx context.Context, sessionID string) ([]Message, error)
	// Append adds messages to the end of the session transcript.
	Append(ctx context.Context, sessionID string, msgs ...Message) error
	// Delete removes the session transcript.
	Delete(ctx context.Context, sessionID string) error
	// List returns the ids of stored sessions.
	List(ctx context.Context) ([]string, error)
}
