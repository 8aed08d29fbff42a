package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/researchmesh/agent"
	"github.com/hupe1980/researchmesh/artifact"
	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/session"
)

// ErrTooManyRuns is returned by Run when MaxConcurrentRuns runs are active.
var ErrTooManyRuns = errors.New("too many concurrent runs")

// ErrRunNotFound is returned by Cancel for unknown or finished runs.
var ErrRunNotFound = errors.New("run not found")

// Workflow is the executable research workflow. *agent.Pipeline implements it.
type Workflow interface {
	Run(ctx context.Context, msgs []core.Message) (*agent.Outcome, error)
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns limits simultaneously active runs; 0 means unlimited.
	MaxConcurrentRuns int
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// SessionStore persists conversation transcripts.
	SessionStore core.SessionStore
	// ArtifactStore receives final reports.
	ArtifactStore core.ArtifactStore
	Logger        logging.Logger
}

// Runner coordinates workflow execution per session. Public methods are safe
// for concurrent use.
type Runner struct {
	workflow Workflow
	opts     Options

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

var _ core.Runner = (*Runner)(nil)

// New constructs a Runner with optional overrides.
func New(workflow Workflow, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 10,
		EventBufferSize:   100,
		SessionStore:      session.NewInMemoryStore(),
		ArtifactStore:     artifact.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Runner{
		workflow:   workflow,
		opts:       opts,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// SessionStore returns the transcript store.
func (r *Runner) SessionStore() core.SessionStore { return r.opts.SessionStore }

// ArtifactStore returns the report store.
func (r *Runner) ArtifactStore() core.ArtifactStore { return r.opts.ArtifactStore }

// ReportName is the artifact name of a run's final report.
func ReportName(runID string) string { return runID + ".md" }

// Run starts an asynchronous run.
func (r *Runner) Run(ctx context.Context, sessionID, userText string) (string, <-chan core.Event, <-chan error, error) {
	if sessionID == "" {
		return "", nil, nil, errors.New("session id is required")
	}

	history, err := r.opts.SessionStore.Load(ctx, sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to load session: %w", err)
	}

	runID := core.NewID()

	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.opts.MaxConcurrentRuns > 0 && len(r.activeRuns) >= r.opts.MaxConcurrentRuns {
		r.mu.Unlock()
		cancel()

		return "", nil, nil, ErrTooManyRuns
	}

	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	eventsCh := make(chan core.Event, r.opts.EventBufferSize)
	errorsCh := make(chan error, 1)

	input := append(core.CloneMessages(history), core.NewUserMessage(userText))

	go func() {
		defer func() {
			close(eventsCh)
			close(errorsCh)

			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()

			cancel()
		}()

		if err := r.execute(ctx, runID, sessionID, input, eventsCh); err != nil {
			errorsCh <- err
		}
	}()

	return runID, eventsCh, errorsCh, nil
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	cancel()

	return nil
}

// Active returns the number of in-flight runs.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.activeRuns)
}

func (r *Runner) execute(ctx context.Context, runID, sessionID string, input []core.Message, eventsCh chan<- core.Event) error {
	emit := func(ev core.Event) {
		ev.SessionID = sessionID

		select {
		case eventsCh <- ev:
		case <-ctx.Done():
		}
	}

	logger := r.opts.Logger
	start := time.Now()

	logger.Info("runner.run.started", "run_id", runID, "session_id", sessionID, "history", len(input)-1)

	userMsg := input[len(input)-1].Clone()

	started := core.NewEvent(runID, core.EventRunStarted)
	started.Message = &userMsg
	emit(started)

	out, runErr := r.workflow.Run(graph.WithCallbacks(ctx, eventCallbacks(runID, emit)...), input)
	if out == nil && runErr == nil {
		runErr = errors.New("workflow returned no outcome")
	}

	// Persist even when the run was cancelled.
	persistCtx := context.WithoutCancel(ctx)

	produced := []core.Message{input[len(input)-1]}
	if out != nil && len(out.Messages) > len(input) {
		produced = append(produced, out.Messages[len(input):]...)
	}

	if err := r.opts.SessionStore.Append(persistCtx, sessionID, produced...); err != nil {
		logger.Error("runner.session.append_failed", "run_id", runID, "session_id", sessionID, "error", err.Error())

		if runErr == nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}

	for _, msg := range produced[1:] {
		emit(core.NewMessageEvent(runID, msg))
	}

	var reportArtifact string

	if out != nil && out.FinalReport != "" {
		reportArtifact = ReportName(runID)

		if err := r.opts.ArtifactStore.Save(persistCtx, sessionID, reportArtifact, []byte(out.FinalReport)); err != nil {
			logger.Error("runner.artifact.save_failed", "run_id", runID, "error", err.Error())

			if runErr == nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
		}
	}

	if runErr != nil {
		logger.Error("runner.run.failed", "run_id", runID, "session_id", sessionID, "error", runErr.Error())

		return fmt.Errorf("run %s: %w", runID, runErr)
	}

	completed := core.NewEvent(runID, core.EventRunCompleted)
	completed.Duration = time.Since(start)
	completed.Data = map[string]any{
		"needs_clarification": out.NeedsClarification,
		"research_brief":      out.ResearchBrief,
		"notes":               len(out.Notes),
		"final_report":        out.FinalReport,
	}

	if out.NeedsClarification {
		completed.Data["question"] = out.Question()
	}

	if reportArtifact != "" {
		completed.Data["artifact"] = reportArtifact
	}

	emit(completed)

	logger.Info(
		"runner.run.completed",
		"run_id", runID,
		"session_id", sessionID,
		"needs_clarification", out.NeedsClarification,
		"duration_ms", completed.Duration.Milliseconds(),
	)

	return nil
}

func eventCallbacks(runID string, emit func(core.Event)) []graph.Callback {
	nodeEvent := func(typ core.EventType, cc *graph.CallbackContext) core.Event {
		ev := core.NewEvent(runID, typ)
		ev.Graph = cc.Graph
		ev.Node = cc.Node
		ev.Next = cc.Next
		ev.Duration = cc.Duration
		ev.Data = map[string]any{"step": cc.Step}

		return ev
	}

	return []graph.Callback{
		graph.NewFunctionCallback(graph.CallbackBeforeNode, func(_ context.Context, cc *graph.CallbackContext) error {
			emit(nodeEvent(core.EventNodeStarted, cc))
			return nil
		}),
		graph.NewFunctionCallback(graph.CallbackAfterNode, func(_ context.Context, cc *graph.CallbackContext) error {
			emit(nodeEvent(core.EventNodeCompleted, cc))
			return nil
		}),
		graph.NewFunctionCallback(graph.CallbackOnError, func(_ context.Context, cc *graph.CallbackContext) error {
			ev := nodeEvent(core.EventNodeFailed, cc)
			if cc.Err != nil {
				ev.Error = cc.Err.Error()
			}

			emit(ev)

			return nil
		}),
	}
}
