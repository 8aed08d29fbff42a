package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/logging"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// MaxParallel bounds concurrently running calls. Values < 1 mean one call
	// at a time.
	MaxParallel int

	Logger logging.Logger

	// OnCall observes every finished call (metrics hook).
	OnCall func(toolName string, d time.Duration, err error)
}

// Executor runs a batch of tool calls against a Set and turns the
// observations into tool messages.
//
// Guarantees:
//   - exactly one tool message per call, correlated by tool_call_id
//   - messages are returned in call order regardless of completion order
//   - panics are recovered and reported as errors
//   - the first failing call (in call order) is returned as the error; tool
//     errors are never swallowed
type Executor struct {
	opts ExecutorOptions
}

// NewExecutor constructs an Executor.
func NewExecutor(optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		MaxParallel: 1,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}

	return &Executor{opts: opts}
}

// Execute invokes every call on behalf of agentName.
func (e *Executor) Execute(ctx context.Context, agentName string, tools *Set, calls []core.ToolCall) ([]core.Message, error) {
	n := len(calls)
	if n == 0 {
		return nil, nil
	}

	maxPar := e.opts.MaxParallel
	if maxPar > n {
		maxPar = n
	}

	type callResult struct {
		observation string
		err         error
	}

	results := make([]callResult, n)
	sem := make(chan struct{}, maxPar)

	var wg sync.WaitGroup

	batchStart := time.Now()

	for i := range calls {
		if err := ctx.Err(); err != nil {
			for j := i; j < n; j++ {
				results[j] = callResult{err: err}
			}

			break
		}

		wg.Add(1)

		sem <- struct{}{}

		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			obs, err := e.executeOne(ctx, agentName, tools, call)
			results[idx] = callResult{observation: obs, err: err}
		}(i, calls[i])
	}

	wg.Wait()

	e.opts.Logger.Debug(
		"tool.batch.complete",
		"agent", agentName,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	msgs := make([]core.Message, 0, n)

	for i, call := range calls {
		if results[i].err != nil {
			return nil, fmt.Errorf("tool %s (call %s): %w", call.Name, call.ID, results[i].err)
		}

		msgs = append(msgs, core.NewToolMessage(call.ID, call.Name, results[i].observation))
	}

	return msgs, nil
}

func (e *Executor) executeOne(ctx context.Context, agentName string, tools *Set, call core.ToolCall) (obs string, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &panicError{val: r, stack: debug.Stack()}

			e.opts.Logger.Error("tool.call.panic", "agent", agentName, "tool", call.Name, "recover", r)
		}

		dur := time.Since(start)

		e.opts.Logger.Info(
			"tool.call.executed",
			"agent", agentName,
			"tool", call.Name,
			"duration_ms", dur.Milliseconds(),
			"error", err != nil,
		)

		if e.opts.OnCall != nil {
			e.opts.OnCall(call.Name, dur, err)
		}
	}()

	impl, err := tools.Get(call.Name)
	if err != nil {
		return "", err
	}

	toolCtx := core.NewToolContext(ctx, agentName, call, e.opts.Logger)

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	return impl.Call(toolCtx, args)
}

type panicError struct {
	val   any
	stack []byte
}

func (p *panicError) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
