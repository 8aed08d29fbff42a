package graph

import (
	"fmt"
	"sync"
)

// Update is a partial State: the fields a node wants to change.
type Update map[string]any

// State is the shared record threaded through a graph run. Every State owns
// its containers; two runs never share a list. Apply is safe for concurrent
// use, so parallel branches may merge into the same State.
type State struct {
	mu     sync.RWMutex
	schema *Schema
	values map[string]any
}

// NewState creates a State with every field at its zero value.
func NewState(schema *Schema) *State {
	st := &State{schema: schema, values: make(map[string]any, len(schema.order))}
	for _, name := range schema.order {
		if f := schema.fields[name]; f.Zero != nil {
			st.values[name] = f.Zero()
		}
	}

	return st
}

// Schema returns the schema the State was created from.
func (s *State) Schema() *Schema { return s.schema }

// Apply merges an update field by field using the declared reducers. The
// update is validated first so a rejected update leaves the State untouched.
func (s *State) Apply(u Update) error {
	if len(u) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]any, len(u))

	for k, v := range u {
		f, ok := s.schema.fields[k]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, k)
		}

		nv, err := f.Reducer(s.values[k], v)
		if err != nil {
			return err
		}

		merged[k] = nv
	}

	for k, v := range merged {
		s.values[k] = v
	}

	return nil
}

// Value returns a detached copy of the named field value.
func (s *State) Value(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false
	}

	if f := s.schema.fields[key]; f.Copy != nil && v != nil {
		v = f.Copy(v)
	}

	return v, true
}

// Get returns the named field as T, or the zero T when the field is unset or
// holds another type.
func Get[T any](s *State, key string) T {
	var zero T

	v, ok := s.Value(key)
	if !ok || v == nil {
		return zero
	}

	t, ok := v.(T)
	if !ok {
		return zero
	}

	return t
}
