package core

import "context"

// Runner executes research runs within a conversational session. It provides:
//   - Asynchronous execution via Run (event stream + terminal error channel)
//   - Cooperative cancellation through Cancel
//   - Stable run identifiers for tracking / external control
//
// Semantics & Guarantees:
//   - Event Ordering: events of one graph are delivered in execution order;
//     events of concurrently running researchers interleave.
//   - Channel Lifecycle: the events channel is closed after the run completes
//     (success, error, or cancellation). The error channel carries at most one
//     terminal error then closes (buffered size 1).
//   - Cancellation: context cancellation or Cancel(runID) stops the run; the
//     conversation messages produced so far are still persisted.
type Runner interface {
	// Run starts a run for sessionID with userText as the new user turn. It
	// returns the run id, the event stream and the terminal error channel.
	// The immediate error return covers startup failures (e.g. session load).
	Run(ctx context.Context, sessionID, userText string) (string, <-chan Event, <-chan error, error)

	// Cancel requests termination of an in-flight run. Cancelling an unknown
	// or already finished run returns an error.
	Cancel(runID string) error
}
