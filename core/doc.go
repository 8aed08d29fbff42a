// Package core provides the foundational domain types and interfaces shared by
// the research pipeline:
//
//   - Messages and tool calls (the conversation data model)
//   - Events (trace records streamed while a run executes)
//   - ToolContext (scoped execution surface for tool implementations)
//   - Pluggable stores for session transcripts, artifacts and document retrieval
//
// The package keeps implementation concerns (graph execution, model adapters,
// persistence) out of scope, exposing small interfaces so backends can be
// swapped in tests or production.
package core
