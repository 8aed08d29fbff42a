package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/internal/util"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/prompts"
	"github.com/hupe1980/researchmesh/tool"
)

// Supervisor graph node names.
const (
	SupervisorLLMNode   = "supervisor"
	SupervisorToolsNode = "supervisor_tools"
)

// Tools offered to the supervisor model.
const (
	ConductResearchToolName  = "ConductResearch"
	ResearchCompleteToolName = "ResearchComplete"
)

const (
	defaultSupervisorName  = "supervisor"
	defaultMaxIterations   = 6
	defaultMaxConcurrency  = 3
	researchFailurePrefix  = "Error synthesizing research report: "
	unknownToolObservation = "Error: unknown tool %q"
)

type conductResearchArgs struct {
	ResearchTopic string `json:"research_topic" description:"The topic to research. Should be a single topic, and should be described in high detail (at least a paragraph)."`
}

type researchCompleteArgs struct{}

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Name string

	// MaxIterations is the number of decision rounds after which the
	// supervisor finalizes regardless of the model's tool calls.
	MaxIterations int

	// MaxConcurrency bounds simultaneously running researchers per round.
	MaxConcurrency int

	// IsolateFailures keeps the round alive when a researcher fails: the
	// failure becomes that call's tool message and siblings' results are
	// kept. By default one failure ends the supervisor loop.
	IsolateFailures bool

	// Instruction variables: date, max_concurrent_research_units,
	// max_researcher_iterations.
	Instruction Instruction

	Clock     prompts.Clock
	Logger    logging.Logger
	Observer  Observer
	Callbacks []graph.Callback
}

// SupervisorResult is the finalized supervisor state.
type SupervisorResult struct {
	ResearchBrief string
	Notes         []string
	RawNotes      []string
	Messages      []core.Message
	Iterations    int
}

// Supervisor coordinates researchers. Each decision round the model either
// delegates topics (run concurrently by ResearchRunner), reflects, or
// declares the research complete.
//
//	supervisor --> supervisor_tools --(continue)--> supervisor
//	                                \--(finalize)--> END
type Supervisor struct {
	model    model.Model
	runner   ResearchRunner
	opts     SupervisorOptions
	tools    []model.ToolDefinition
	think    *tool.Set
	executor *tool.Executor
	graph    *graph.Graph
}

// NewSupervisor compiles a supervisor that delegates to runner.
func NewSupervisor(m model.Model, runner ResearchRunner, optFns ...func(o *SupervisorOptions)) (*Supervisor, error) {
	if m == nil {
		return nil, fmt.Errorf("supervisor: model is required")
	}

	if runner == nil {
		return nil, fmt.Errorf("supervisor: research runner is required")
	}

	opts := SupervisorOptions{
		Name:           defaultSupervisorName,
		MaxIterations:  defaultMaxIterations,
		MaxConcurrency: defaultMaxConcurrency,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxIterations < 1 {
		return nil, fmt.Errorf("supervisor: max iterations must be positive, got %d", opts.MaxIterations)
	}

	if opts.MaxConcurrency < 1 {
		return nil, fmt.Errorf("supervisor: max concurrency must be positive, got %d", opts.MaxConcurrency)
	}

	opts.Instruction = opts.Instruction.or(prompts.Supervisor)
	opts.Logger = logging.OrNoOp(opts.Logger)
	opts.Observer = orNoOpObserver(opts.Observer)

	think := tool.NewThinkTool()

	executor := tool.NewExecutor(func(o *tool.ExecutorOptions) {
		o.Logger = opts.Logger
		o.OnCall = opts.Observer.ToolCalled
	})

	s := &Supervisor{
		model:    m,
		runner:   runner,
		opts:     opts,
		tools:    supervisorTools(think),
		think:    tool.NewSet(think),
		executor: executor,
	}

	g, err := graph.NewBuilder(opts.Name, SupervisorStateSchema()).
		AddNode(SupervisorLLMNode, s.decide).
		AddNode(SupervisorToolsNode, s.act).
		SetEntry(SupervisorLLMNode).
		AddEdge(SupervisorLLMNode, SupervisorToolsNode).
		Compile(func(o *graph.Options) {
			o.Logger = opts.Logger
			o.Callbacks = opts.Callbacks
		})
	if err != nil {
		return nil, err
	}

	s.graph = g

	return s, nil
}

func supervisorTools(think tool.Tool) []model.ToolDefinition {
	return []model.ToolDefinition{
		model.NewToolDefinition(
			ConductResearchToolName,
			"Call this tool to conduct research on a specific topic.",
			util.CreateSchema(conductResearchArgs{}),
		),
		model.NewToolDefinition(
			ResearchCompleteToolName,
			"Call this tool to indicate that the research is complete.",
			util.CreateSchema(researchCompleteArgs{}),
		),
		tool.Definition(think),
	}
}

// Graph returns the compiled supervisor graph.
func (s *Supervisor) Graph() *graph.Graph { return s.graph }

// BriefMessage is the seed message the coordinator starts from.
func BriefMessage(brief string) core.Message {
	return core.NewUserMessage(brief + ".")
}

// Coordinate runs the supervisor for a research brief.
func (s *Supervisor) Coordinate(ctx context.Context, brief string) (SupervisorResult, error) {
	st, err := s.Run(ctx, graph.Update{
		KeyResearchBrief:      brief,
		KeySupervisorMessages: BriefMessage(brief),
	})
	if err != nil {
		return SupervisorResult{}, err
	}

	return resultFromState(st), nil
}

// Run executes the supervisor graph over an input update. The iteration
// counter always starts from zero.
func (s *Supervisor) Run(ctx context.Context, input graph.Update) (*graph.State, error) {
	if _, ok := input[KeyResearchIterations]; ok {
		input = cloneUpdate(input)
		delete(input, KeyResearchIterations)
	}

	return s.graph.Run(ctx, input)
}

func resultFromState(st *graph.State) SupervisorResult {
	return SupervisorResult{
		ResearchBrief: graph.Get[string](st, KeyResearchBrief),
		Notes:         graph.Get[[]string](st, KeyNotes),
		RawNotes:      graph.Get[[]string](st, KeyRawNotes),
		Messages:      graph.Get[[]core.Message](st, KeySupervisorMessages),
		Iterations:    graph.Get[int](st, KeyResearchIterations),
	}
}

func (s *Supervisor) decide(ctx context.Context, st *graph.State) (graph.Result, error) {
	iteration := graph.Get[int](st, KeyResearchIterations) + 1

	system, err := s.opts.Instruction.Resolve(map[string]any{
		"date":                          prompts.Today(s.opts.Clock),
		"max_concurrent_research_units": s.opts.MaxConcurrency,
		"max_researcher_iterations":     s.opts.MaxIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("supervisor instruction: %w", err)
	}

	history := graph.Get[[]core.Message](st, KeySupervisorMessages)

	resp, err := model.Invoke(ctx, s.model, model.Request{
		Messages: append([]core.Message{core.NewSystemMessage(system)}, history...),
		Tools:    s.tools,
	})
	if err != nil {
		return nil, err
	}

	s.opts.Observer.SupervisorRound(iteration)
	s.opts.Logger.Info(
		"supervisor.round.start",
		"supervisor", s.opts.Name,
		"iteration", iteration,
		"tool_calls", len(resp.Message.ToolCalls),
	)

	return graph.Continue(graph.Update{
		KeySupervisorMessages: resp.Message,
		KeyResearchIterations: iteration,
	}), nil
}

func (s *Supervisor) act(ctx context.Context, st *graph.State) (graph.Result, error) {
	history := graph.Get[[]core.Message](st, KeySupervisorMessages)
	iteration := graph.Get[int](st, KeyResearchIterations)
	last, _ := lastMessage(history)

	exceeded := iteration >= s.opts.MaxIterations
	noCalls := !last.HasToolCalls()
	completed := false

	for _, call := range last.ToolCalls {
		if call.Name == ResearchCompleteToolName {
			completed = true
			break
		}
	}

	if exceeded || noCalls || completed {
		s.opts.Logger.Info(
			"supervisor.finalize",
			"supervisor", s.opts.Name,
			"iteration", iteration,
			"exceeded", exceeded,
			"no_calls", noCalls,
			"completed", completed,
		)

		return graph.Goto(graph.End, s.finalize(st, history)), nil
	}

	var (
		thinkCalls  []core.ToolCall
		delegations []core.ToolCall
		unknown     []core.Message
	)

	for _, call := range last.ToolCalls {
		switch call.Name {
		case tool.ThinkToolName:
			thinkCalls = append(thinkCalls, call)
		case ConductResearchToolName:
			delegations = append(delegations, call)
		default:
			s.opts.Logger.Warn("supervisor.tool.unknown", "supervisor", s.opts.Name, "tool", call.Name)
			unknown = append(unknown, core.NewToolMessage(call.ID, call.Name, fmt.Sprintf(unknownToolObservation, call.Name)))
		}
	}

	reflections, err := s.executor.Execute(ctx, s.opts.Name, s.think, thinkCalls)
	if err != nil {
		return s.abort(st, history, iteration, err), nil
	}

	results, err := s.delegate(ctx, delegations)
	if err != nil {
		return s.abort(st, history, iteration, err), nil
	}

	msgs := make([]core.Message, 0, len(last.ToolCalls))
	msgs = append(msgs, reflections...)
	msgs = append(msgs, unknown...)

	rawNotes := make([]string, 0, len(results))

	for _, r := range results {
		msgs = append(msgs, r.message)

		if !r.failed {
			rawNotes = append(rawNotes, r.rawNotes)
		}
	}

	return graph.Goto(SupervisorLLMNode, graph.Update{
		KeySupervisorMessages: msgs,
		KeyRawNotes:           rawNotes,
	}), nil
}

// abort ends the loop after a failed round. Notes come from the history as it
// stood before the round; nothing from the failed round is kept.
func (s *Supervisor) abort(st *graph.State, history []core.Message, iteration int, err error) graph.Result {
	s.opts.Logger.Error(
		"supervisor.tools.failed",
		"supervisor", s.opts.Name,
		"iteration", iteration,
		"error", err.Error(),
	)

	return graph.Goto(graph.End, s.finalize(st, history))
}

func (s *Supervisor) finalize(st *graph.State, history []core.Message) graph.Update {
	return graph.Update{
		KeyNotes:         core.MessageContents(core.FilterMessages(history, core.RoleTool)),
		KeyResearchBrief: graph.Get[string](st, KeyResearchBrief),
	}
}

type delegationResult struct {
	message  core.Message
	rawNotes string
	failed   bool
}

func (s *Supervisor) delegate(ctx context.Context, calls []core.ToolCall) ([]delegationResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	return fanOut(ctx, s.opts.MaxConcurrency, calls, func(ctx context.Context, call core.ToolCall) (delegationResult, error) {
		var args conductResearchArgs
		if err := tool.DecodeArgs(call.Arguments, &args); err != nil {
			return delegationResult{}, fmt.Errorf("%s (call %s): %w", call.Name, call.ID, err)
		}

		if args.ResearchTopic == "" {
			return delegationResult{}, fmt.Errorf("%s (call %s): %w", call.Name, call.ID, ErrEmptyTopic)
		}

		s.opts.Observer.ResearcherStarted()
		start := time.Now()

		res, err := s.runner.Research(ctx, args.ResearchTopic)

		s.opts.Observer.ResearcherFinished(time.Since(start), err)

		if err != nil {
			if s.opts.IsolateFailures {
				s.opts.Logger.Warn("supervisor.researcher.failed", "supervisor", s.opts.Name, "call", call.ID, "error", err.Error())

				return delegationResult{
					message: core.NewToolMessage(call.ID, call.Name, researchFailurePrefix+err.Error()),
					failed:  true,
				}, nil
			}

			return delegationResult{}, fmt.Errorf("research %q (call %s): %w", args.ResearchTopic, call.ID, err)
		}

		return delegationResult{
			message:  core.NewToolMessage(call.ID, call.Name, res.CompressedResearch),
			rawNotes: res.RawNotes,
		}, nil
	})
}

func cloneUpdate(u graph.Update) graph.Update {
	out := make(graph.Update, len(u))
	for k, v := range u {
		out[k] = v
	}

	return out
}
