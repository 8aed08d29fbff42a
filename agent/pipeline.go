package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/prompts"
	"github.com/hupe1980/researchmesh/tool"
)

// SupervisorNode is the pipeline node that runs the coordinator.
const SupervisorNode = "supervisor"

// PipelineOptions configures a Pipeline. Unset models default to the model
// passed to NewPipeline.
type PipelineOptions struct {
	Name string

	ScopingModel    model.Model
	SupervisorModel model.Model
	ResearchModel   model.Model
	CompressModel   model.Model
	ReportModel     model.Model

	// Tools bound to every researcher.
	Tools *tool.Set

	// Runner replaces the built-in researcher.
	Runner ResearchRunner

	MaxIterations         int
	MaxConcurrency        int
	IsolateFailures       bool
	MaxToolCallIterations int
	MaxParallelTools      int

	Clock     prompts.Clock
	Logger    logging.Logger
	Observer  Observer
	Callbacks []graph.Callback
}

// Outcome is the result of one pipeline run. When the run fails it carries
// whatever state had accumulated.
type Outcome struct {
	// Messages is the whole conversation including the input.
	Messages      []core.Message
	ResearchBrief string
	Notes         []string
	RawNotes      []string
	FinalReport   string

	// NeedsClarification is set when the scoping gate asked the user a
	// question instead of starting research. The question is the last message.
	NeedsClarification bool
}

// Question returns the clarifying question, if any.
func (o *Outcome) Question() string {
	if !o.NeedsClarification {
		return ""
	}

	last, _ := lastMessage(o.Messages)

	return last.Content
}

// Pipeline is the end-to-end research workflow:
//
//	clarify_with_user --(clarify)--> END
//	                  \--> write_research_brief --> supervisor --> final_report_generation --> END
type Pipeline struct {
	graph      *graph.Graph
	scoper     *Scoper
	supervisor *Supervisor
	writer     *ReportWriter
	logger     logging.Logger
}

// NewPipeline wires scoping, supervision, research and reporting around m.
func NewPipeline(m model.Model, optFns ...func(o *PipelineOptions)) (*Pipeline, error) {
	opts := PipelineOptions{
		Name:             "deep_research",
		MaxIterations:    defaultMaxIterations,
		MaxConcurrency:   defaultMaxConcurrency,
		MaxParallelTools: 1,
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	pick := func(specific model.Model) model.Model {
		if specific != nil {
			return specific
		}

		return m
	}

	scoper, err := NewScoper(pick(opts.ScopingModel), func(o *ScoperOptions) {
		o.Clock = opts.Clock
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	runner := opts.Runner
	if runner == nil {
		researcher, err := NewResearcher(pick(opts.ResearchModel), func(o *ResearcherOptions) {
			o.Tools = opts.Tools
			o.CompressModel = opts.CompressModel
			o.MaxToolCallIterations = opts.MaxToolCallIterations
			o.MaxParallelTools = opts.MaxParallelTools
			o.Clock = opts.Clock
			o.Logger = opts.Logger
			o.Observer = opts.Observer
			o.Callbacks = opts.Callbacks
		})
		if err != nil {
			return nil, err
		}

		runner = researcher
	}

	supervisor, err := NewSupervisor(pick(opts.SupervisorModel), runner, func(o *SupervisorOptions) {
		o.MaxIterations = opts.MaxIterations
		o.MaxConcurrency = opts.MaxConcurrency
		o.IsolateFailures = opts.IsolateFailures
		o.Clock = opts.Clock
		o.Logger = opts.Logger
		o.Observer = opts.Observer
		o.Callbacks = opts.Callbacks
	})
	if err != nil {
		return nil, err
	}

	writer, err := NewReportWriter(pick(opts.ReportModel), func(o *ReportWriterOptions) {
		o.Clock = opts.Clock
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	p := &Pipeline{scoper: scoper, supervisor: supervisor, writer: writer, logger: opts.Logger}

	g, err := graph.NewBuilder(opts.Name, ResearchStateSchema()).
		AddNode(ClarifyNode, scoper.Clarify).
		AddNode(BriefNode, scoper.WriteBrief).
		AddNode(SupervisorNode, p.supervise).
		AddNode(ReportNode, writer.Node).
		SetEntry(ClarifyNode).
		AddEdge(BriefNode, SupervisorNode).
		AddEdge(SupervisorNode, ReportNode).
		AddEdge(ReportNode, graph.End).
		Compile(func(o *graph.Options) {
			o.Logger = opts.Logger
			o.Callbacks = opts.Callbacks
		})
	if err != nil {
		return nil, err
	}

	p.graph = g

	return p, nil
}

// Graph returns the compiled pipeline graph.
func (p *Pipeline) Graph() *graph.Graph { return p.graph }

// Run executes the workflow over a conversation. The input is not modified.
func (p *Pipeline) Run(ctx context.Context, msgs []core.Message) (*Outcome, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("pipeline: at least one message is required")
	}

	st, err := p.graph.Run(ctx, graph.Update{KeyMessages: core.CloneMessages(msgs)})

	out := &Outcome{
		Messages:      graph.Get[[]core.Message](st, KeyMessages),
		ResearchBrief: graph.Get[string](st, KeyResearchBrief),
		Notes:         graph.Get[[]string](st, KeyNotes),
		RawNotes:      graph.Get[[]string](st, KeyRawNotes),
		FinalReport:   graph.Get[string](st, KeyFinalReport),
	}

	if err != nil {
		return out, err
	}

	out.NeedsClarification = out.ResearchBrief == ""

	return out, nil
}

func (p *Pipeline) supervise(ctx context.Context, st *graph.State) (graph.Result, error) {
	seed := graph.Get[[]core.Message](st, KeySupervisorMessages)

	sub, err := p.supervisor.Run(ctx, graph.Update{
		KeyResearchBrief:      graph.Get[string](st, KeyResearchBrief),
		KeySupervisorMessages: seed,
	})
	if err != nil {
		return nil, err
	}

	res := resultFromState(sub)

	p.logger.Info(
		"pipeline.supervisor.completed",
		"iterations", res.Iterations,
		"notes", len(res.Notes),
	)

	return graph.Continue(graph.Update{
		KeySupervisorMessages: res.Messages[len(seed):],
		KeyResearchBrief:      res.ResearchBrief,
		KeyNotes:              res.Notes,
		KeyRawNotes:           res.RawNotes,
	}), nil
}
