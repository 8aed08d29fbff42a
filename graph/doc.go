// Package graph implements the typed-state graph execution engine the research
// pipeline is built from.
//
// A graph is a set of named nodes over a shared State. The State is declared
// by a Schema in which every field has a merge rule (Reducer): OverrideField
// replaces the current value, AppendField concatenates. Each node reads the
// State and returns a Result:
//
//   - Next: merge the update, then follow the node's static or conditional edge
//   - Command: merge the update, then jump to Goto (which may be End)
//
// Cycles are legal and the engine imposes no step limit; loop bounds are the
// nodes' responsibility (for example an iteration counter in the State).
//
// Lifecycle hooks (before node, after node, on error) are registered per graph
// or attached to a context with WithCallbacks so nested graphs executed inside
// a node report through the same sinks.
package graph
