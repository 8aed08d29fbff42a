package core

import "context"

// ArtifactStore persists named binary artifacts (final reports) scoped by
// session. Implementations must be safe for concurrent use.
type ArtifactStore interface {
	Save(ctx context.Context, sessionID, name string, data []byte) error
	Get(ctx context.Context, sessionID, name string) ([]byte, error)
	// List returns artifact names of the session in lexical order.
	List(ctx context.Context, sessionID string) ([]string, error)
	Delete(ctx context.Context, sessionID, name string) error
}
