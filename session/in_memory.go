package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/researchmesh/core"
)

// ErrNotFound is returned when deleting a session that does not exist.
var ErrNotFound = errors.New("session not found")

// InMemoryStore is a volatile SessionStore keeping transcripts in a process
// local map. Messages are cloned on the way in and out so callers cannot
// mutate stored history.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.Message
}

var _ core.SessionStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]core.Message)}
}

// Load returns a copy of the transcript.
func (s *InMemoryStore) Load(_ context.Context, sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return core.CloneMessages(s.sessions[sessionID]), nil
}

// Append adds messages, creating the session lazily.
func (s *InMemoryStore) Append(_ context.Context, sessionID string, msgs ...core.Message) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], core.CloneMessages(msgs)...)

	return nil
}

// Delete removes the transcript or returns ErrNotFound.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	delete(s.sessions, sessionID)

	return nil
}

// List returns the session ids in lexical order.
func (s *InMemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids, nil
}
