package tool

import (
	"fmt"

	"github.com/hupe1980/researchmesh/model"
)

// Set is an ordered collection of tools addressed by name. The declaration
// order is the order in which tools are offered to the model.
type Set struct {
	order []string
	tools map[string]Tool
}

// NewSet builds a set; a later tool with a duplicate name replaces the earlier
// one in place.
func NewSet(tools ...Tool) *Set {
	s := &Set{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		s.Add(t)
	}

	return s
}

// Add registers a tool.
func (s *Set) Add(t Tool) {
	if _, exists := s.tools[t.Name()]; !exists {
		s.order = append(s.order, t.Name())
	}

	s.tools[t.Name()] = t
}

// Get looks up a tool by name.
func (s *Set) Get(name string) (Tool, error) {
	if s != nil {
		if t, ok := s.tools[name]; ok {
			return t, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

// Names returns the tool names in declaration order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s.order...)
}

// Len returns the number of tools.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}

	return len(s.order)
}

// Definitions returns the model declarations in declaration order.
func (s *Set) Definitions() []model.ToolDefinition {
	if s == nil {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(s.order))
	for _, name := range s.order {
		defs = append(defs, Definition(s.tools[name]))
	}

	return defs
}
