// Package agent implements the research pipeline agents on top of the graph
// engine:
//
//  1. Scoper: the scoping gate that either asks the user a clarifying
//     question or writes the research brief
//  2. Researcher: the per-topic tool-calling loop that ends in a compressed
//     summary of its findings
//  3. Supervisor: the coordinator that delegates topics to researchers with
//     bounded concurrency until it is done or out of budget
//  4. ReportWriter: the final synthesis over brief and notes
//
// Pipeline wires all four into one graph over the research state.
//
// Every agent is a compiled graph.Graph. Per-run values (iteration counters,
// message histories) live in graph state, never in the agent, so a single
// agent value serves concurrent runs.
package agent
