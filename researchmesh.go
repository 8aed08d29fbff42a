// Package researchmesh provides a high-level façade over the deep research
// pipeline and its runtime services (sessions, report artifacts, metrics and
// logging). Most applications interact with this package by:
//  1. Creating a ResearchMesh via New() with a model, or via NewFromConfig()
//  2. Starting runs asynchronously (Run) or synchronously (RunSync)
//  3. Answering clarifying questions by running again on the same session
//
// The façade delegates orchestration to agent.Pipeline and execution to
// runner.Runner. All defaults are in-memory and safe for local development.
package researchmesh

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/researchmesh/agent"
	"github.com/hupe1980/researchmesh/artifact"
	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/metrics"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/prompts"
	"github.com/hupe1980/researchmesh/runner"
	"github.com/hupe1980/researchmesh/session"
	"github.com/hupe1980/researchmesh/tool"
)

// Options configures the ResearchMesh instance.
type Options struct {
	// Tools bound to every researcher. Defaults to the think tool only.
	Tools *tool.Set

	// Research limits.
	MaxIterations         int
	MaxConcurrency        int
	IsolateFailures       bool
	MaxToolCallIterations int
	MaxParallelTools      int

	// MaxConcurrentRuns limits simultaneously executing runs (0 = unlimited).
	MaxConcurrentRuns int
	// EventBufferSize sets the channel buffer size for run events.
	EventBufferSize int

	// Stores (default to in-memory implementations).
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore

	// Metrics instruments the model, graph nodes, researchers and tools when set.
	Metrics *metrics.Metrics

	Clock  prompts.Clock
	Logger logging.Logger
}

// ResearchMesh is the high-level façade aggregating the pipeline and the runner.
type ResearchMesh struct {
	opts     Options
	pipeline *agent.Pipeline
	runner   *runner.Runner
}

// New creates a ResearchMesh around model m. Every pipeline step uses m.
func New(m model.Model, optFns ...func(o *Options)) (*ResearchMesh, error) {
	if m == nil {
		return nil, errors.New("researchmesh: model is required")
	}

	opts := Options{
		MaxIterations:     6,
		MaxConcurrency:    3,
		MaxParallelTools:  1,
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

	var (
		observer  agent.Observer
		callbacks []graph.Callback
	)

	if opts.Metrics != nil {
		m = opts.Metrics.InstrumentModel(m)
		observer = opts.Metrics
		callbacks = opts.Metrics.Callbacks()
	}

	p, err := agent.NewPipeline(m, func(o *agent.PipelineOptions) {
		o.Tools = opts.Tools
		o.MaxIterations = opts.MaxIterations
		o.MaxConcurrency = opts.MaxConcurrency
		o.IsolateFailures = opts.IsolateFailures
		o.MaxToolCallIterations = opts.MaxToolCallIterations
		o.MaxParallelTools = opts.MaxParallelTools
		o.Clock = opts.Clock
		o.Logger = opts.Logger
		o.Observer = observer
		o.Callbacks = callbacks
	})
	if err != nil {
		return nil, fmt.Errorf("researchmesh: %w", err)
	}

	r := runner.New(p, func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.EventBufferSize = opts.EventBufferSize
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.Logger = opts.Logger
	})

	return &ResearchMesh{opts: opts, pipeline: p, runner: r}, nil
}

// Pipeline returns the underlying research workflow.
func (m *ResearchMesh) Pipeline() *agent.Pipeline { return m.pipeline }

// Runner returns the underlying runner.
func (m *ResearchMesh) Runner() *runner.Runner { return m.runner }

// Run starts an asynchronous run returning event & error channels.
func (m *ResearchMesh) Run(ctx context.Context, sessionID, text string) (string, <-chan core.Event, <-chan error, error) {
	return m.runner.Run(ctx, sessionID, text)
}

// Cancel stops an active run.
func (m *ResearchMesh) Cancel(runID string) error { return m.runner.Cancel(runID) }

// History returns the stored conversation of a session.
func (m *ResearchMesh) History(ctx context.Context, sessionID string) ([]core.Message, error) {
	return m.opts.SessionStore.Load(ctx, sessionID)
}

// Report returns the stored final report of a run.
func (m *ResearchMesh) Report(ctx context.Context, sessionID, runID string) (string, error) {
	data, err := m.opts.ArtifactStore.Get(ctx, sessionID, runner.ReportName(runID))
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Result is the collected outcome of a synchronous run.
type Result struct {
	RunID  string
	Events []core.Event

	NeedsClarification bool
	// Question is the clarifying question when NeedsClarification is set.
	Question      string
	ResearchBrief string
	FinalReport   string
}

// RunSync is a synchronous helper that drains the async channels and
// accumulates events. On error the events collected so far are returned.
func (m *ResearchMesh) RunSync(ctx context.Context, sessionID, text string) (*Result, error) {
	runID, eventsCh, errorsCh, err := m.runner.Run(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: runID}

	for ev := range eventsCh {
		res.Events = append(res.Events, ev)

		if ev.IsTerminal() {
			res.apply(ev.Data)
		}
	}

	if err := <-errorsCh; err != nil {
		return res, err
	}

	return res, nil
}

func (r *Result) apply(data map[string]any) {
	r.NeedsClarification, _ = data["needs_clarification"].(bool)
	r.Question, _ = data["question"].(string)
	r.ResearchBrief, _ = data["research_brief"].(string)
	r.FinalReport, _ = data["final_report"].(string)
}
