// Package runner drives research runs per conversation session.
//
// A Runner loads the session transcript, appends the new user turn, executes
// the workflow asynchronously and streams core.Events while it runs: one
// run.started, node.started / node.completed / node.failed for every graph
// node (including nested supervisor and researcher graphs), message events for
// the new conversation messages and a final run.completed carrying the outcome.
//
// After the workflow returns the new messages are persisted to the
// core.SessionStore, even when the run failed or was cancelled, and a final
// report is saved as the artifact "<runID>.md".
package runner
