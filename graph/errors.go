package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an edge or Command targets an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNoRoute is returned when a node returns Next but has no outgoing edge.
	ErrNoRoute = errors.New("no route from node")
	// ErrUnknownField is returned when an update names a field the schema does not declare.
	ErrUnknownField = errors.New("unknown state field")
	// ErrTypeMismatch is returned when an update value does not fit the field's reducer.
	ErrTypeMismatch = errors.New("state field type mismatch")
)

// NodeError reports the failure of a single node execution.
type NodeError struct {
	Graph string
	Node  string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("graph %s: node %s: %v", e.Graph, e.Node, e.Err)
}

// Unwrap returns the underlying node error.
func (e *NodeError) Unwrap() error { return e.Err }
