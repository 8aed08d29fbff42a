package graph

import (
	"context"
	"time"

	"github.com/hupe1980/researchmesh/logging"
)

// CallbackType defines the lifecycle points where callbacks run.
type CallbackType string

const (
	// CallbackBeforeNode is triggered before a node executes.
	CallbackBeforeNode CallbackType = "before_node"
	// CallbackAfterNode is triggered after a node's update was merged and its
	// successor resolved.
	CallbackAfterNode CallbackType = "after_node"
	// CallbackOnError is triggered when a node (or the merge of its update) fails.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext describes the node execution a callback observes.
type CallbackContext struct {
	Graph    string
	Node     string
	Step     int
	Next     string
	Duration time.Duration
	Err      error
	State    *State
}

// Callback is a synchronous lifecycle hook. Returning an error from a
// before-node callback aborts the run.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, cc *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cc *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(t CallbackType, fn func(ctx context.Context, cc *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{callbackType: t, fn: fn}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function.
func (c *FunctionCallback) Execute(ctx context.Context, cc *CallbackContext) error {
	return c.fn(ctx, cc)
}

// CallbackManager routes callbacks by type. Registration is not synchronized;
// register before running.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// Register adds callbacks; they run in registration order.
func (cm *CallbackManager) Register(cbs ...Callback) {
	for _, cb := range cbs {
		cm.callbacks[cb.Type()] = append(cm.callbacks[cb.Type()], cb)
	}
}

// Execute runs all callbacks of type t and stops at the first error.
func (cm *CallbackManager) Execute(ctx context.Context, t CallbackType, cc *CallbackContext) error {
	for _, cb := range cm.callbacks[t] {
		if err := cb.Execute(ctx, cc); err != nil {
			return err
		}
	}

	return nil
}

type callbacksKey struct{}

// WithCallbacks returns a context carrying callbacks in addition to any already
// attached. Every graph run under the returned context executes them.
func WithCallbacks(ctx context.Context, cbs ...Callback) context.Context {
	existing, _ := ctx.Value(callbacksKey{}).([]Callback)
	all := make([]Callback, 0, len(existing)+len(cbs))
	all = append(all, existing...)
	all = append(all, cbs...)

	return context.WithValue(ctx, callbacksKey{}, all)
}

func callbacksFromContext(ctx context.Context) []Callback {
	cbs, _ := ctx.Value(callbacksKey{}).([]Callback)
	return cbs
}

// LoggingCallbacks returns callbacks that log node transitions and failures.
func LoggingCallbacks(logger logging.Logger) []Callback {
	logger = logging.OrNoOp(logger)

	return []Callback{
		NewFunctionCallback(CallbackBeforeNode, func(_ context.Context, cc *CallbackContext) error {
			logger.Debug("graph.node.start", "graph", cc.Graph, "node", cc.Node, "step", cc.Step)
			return nil
		}),
		NewFunctionCallback(CallbackAfterNode, func(_ context.Context, cc *CallbackContext) error {
			logger.Debug("graph.node.end", "graph", cc.Graph, "node", cc.Node, "next", cc.Next, "duration_ms", cc.Duration.Milliseconds())
			return nil
		}),
		NewFunctionCallback(CallbackOnError, func(_ context.Context, cc *CallbackContext) error {
			logger.Error("graph.node.error", "graph", cc.Graph, "node", cc.Node, "error", cc.Err)
			return nil
		}),
	}
}
