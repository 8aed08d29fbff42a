package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/prompts"
	"github.com/hupe1980/researchmesh/tool"
)

// Researcher graph node names.
const (
	ResearcherLLMNode      = "llm_call"
	ResearcherToolsNode    = "tool_node"
	ResearcherCompressNode = "compress_research"
)

const (
	defaultResearcherName = "researcher"
	scopingSeed           = "Conduct initial scoping for the research topic."
	noTopic               = "No topic specified"
)

// ResearchResult is the outcome of one researcher run.
type ResearchResult struct {
	CompressedResearch string
	RawNotes           string
	Messages           []core.Message
}

// ResearchRunner runs one research topic to completion. *Researcher is the
// production implementation; the supervisor only depends on this interface.
type ResearchRunner interface {
	Research(ctx context.Context, topic string) (ResearchResult, error)
}

// ResearcherOptions configures a Researcher.
type ResearcherOptions struct {
	Name string

	// Tools bound to the decide step. Defaults to the think tool only.
	Tools *tool.Set

	Instruction              Instruction // variables: date
	CompressInstruction      Instruction // variables: date
	CompressHumanInstruction Instruction // variables: research_topic

	// CompressModel runs the compression step. Defaults to the researcher model.
	CompressModel model.Model

	// MaxToolCallIterations caps act rounds per run; 0 means unlimited.
	MaxToolCallIterations int

	// MaxParallelTools bounds concurrently executing calls of one act round.
	MaxParallelTools int

	Clock     prompts.Clock
	Logger    logging.Logger
	Observer  Observer
	Callbacks []graph.Callback
}

// Researcher is the sub-agent executor: it loops decide -> act until the
// model stops calling tools, then compresses its findings.
//
//	llm_call --(tool calls)--> tool_node --> llm_call
//	llm_call --(no calls)----> compress_research --> END
type Researcher struct {
	model    model.Model
	opts     ResearcherOptions
	executor *tool.Executor
	graph    *graph.Graph
}

// NewResearcher compiles a researcher around model m.
func NewResearcher(m model.Model, optFns ...func(o *ResearcherOptions)) (*Researcher, error) {
	if m == nil {
		return nil, fmt.Errorf("researcher: model is required")
	}

	opts := ResearcherOptions{
		Name:             defaultResearcherName,
		MaxParallelTools: 1,
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tools == nil {
		opts.Tools = tool.NewSet(tool.NewThinkTool())
	}

	if opts.CompressModel == nil {
		opts.CompressModel = m
	}

	opts.Instruction = opts.Instruction.or(prompts.Researcher)
	opts.CompressInstruction = opts.CompressInstruction.or(prompts.CompressSystem)
	opts.CompressHumanInstruction = opts.CompressHumanInstruction.or(prompts.CompressHuman)
	opts.Logger = logging.OrNoOp(opts.Logger)
	opts.Observer = orNoOpObserver(opts.Observer)

	r := &Researcher{model: m, opts: opts}

	r.executor = tool.NewExecutor(func(o *tool.ExecutorOptions) {
		o.MaxParallel = opts.MaxParallelTools
		o.Logger = opts.Logger
		o.OnCall = opts.Observer.ToolCalled
	})

	g, err := graph.NewBuilder(opts.Name, ResearcherStateSchema()).
		AddNode(ResearcherLLMNode, r.decide).
		AddNode(ResearcherToolsNode, r.act).
		AddNode(ResearcherCompressNode, r.compress).
		SetEntry(ResearcherLLMNode).
		AddConditionalEdge(ResearcherLLMNode, routeResearcher).
		AddEdge(ResearcherToolsNode, ResearcherLLMNode).
		AddEdge(ResearcherCompressNode, graph.End).
		Compile(func(o *graph.Options) {
			o.Logger = opts.Logger
			o.Callbacks = opts.Callbacks
		})
	if err != nil {
		return nil, err
	}

	r.graph = g

	return r, nil
}

// Name returns the researcher name.
func (r *Researcher) Name() string { return r.opts.Name }

// Graph returns the compiled researcher graph.
func (r *Researcher) Graph() *graph.Graph { return r.graph }

// Research runs the loop for topic. The topic seeds the message history.
func (r *Researcher) Research(ctx context.Context, topic string) (ResearchResult, error) {
	input := graph.Update{KeyResearchTopic: topic}
	if topic != "" {
		input[KeyResearcherMessages] = core.NewUserMessage(topic)
	}

	st, err := r.Run(ctx, input)
	if err != nil {
		return ResearchResult{}, err
	}

	return ResearchResult{
		CompressedResearch: graph.Get[string](st, KeyCompressedResearch),
		RawNotes:           strings.Join(graph.Get[[]string](st, KeyRawNotes), "\n"),
		Messages:           graph.Get[[]core.Message](st, KeyResearcherMessages),
	}, nil
}

// Run executes the researcher graph over an arbitrary input update. Each run
// gets its own act-round limiter.
func (r *Researcher) Run(ctx context.Context, input graph.Update) (*graph.State, error) {
	limiter := core.NewLimiter(r.opts.Name+".tool_rounds", r.opts.MaxToolCallIterations)
	ctx = context.WithValue(ctx, limiterKey{}, limiter)

	start := time.Now()
	st, err := r.graph.Run(ctx, input)

	r.opts.Logger.Debug(
		"researcher.run.completed",
		"researcher", r.opts.Name,
		"tool_rounds", limiter.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	return st, err
}

type limiterKey struct{}

func (r *Researcher) decide(ctx context.Context, st *graph.State) (graph.Result, error) {
	system, err := r.opts.Instruction.Resolve(map[string]any{"date": prompts.Today(r.opts.Clock)})
	if err != nil {
		return nil, fmt.Errorf("researcher instruction: %w", err)
	}

	history := graph.Get[[]core.Message](st, KeyResearcherMessages)

	var added []core.Message

	if len(history) == 0 {
		seed := graph.Get[string](st, KeyResearchTopic)
		if seed == "" {
			seed = scopingSeed
		}

		history = []core.Message{core.NewUserMessage(seed)}
		added = append(added, history...)
	}

	resp, err := model.Invoke(ctx, r.model, model.Request{
		Messages: append([]core.Message{core.NewSystemMessage(system)}, history...),
		Tools:    r.opts.Tools.Definitions(),
	})
	if err != nil {
		return nil, err
	}

	added = append(added, resp.Message)

	return graph.Continue(graph.Update{KeyResearcherMessages: added}), nil
}

func routeResearcher(st *graph.State) string {
	last, ok := lastMessage(graph.Get[[]core.Message](st, KeyResearcherMessages))
	if ok && last.HasToolCalls() {
		return ResearcherToolsNode
	}

	return ResearcherCompressNode
}

func (r *Researcher) act(ctx context.Context, st *graph.State) (graph.Result, error) {
	last, _ := lastMessage(graph.Get[[]core.Message](st, KeyResearcherMessages))

	rounds := graph.Get[int](st, KeyToolCallIterations) + 1

	if limiter, ok := ctx.Value(limiterKey{}).(*core.Limiter); ok {
		if err := limiter.Increment(); err != nil {
			return nil, err
		}
	}

	msgs, err := r.executor.Execute(ctx, r.opts.Name, r.opts.Tools, last.ToolCalls)
	if err != nil {
		return nil, err
	}

	return graph.Continue(graph.Update{
		KeyResearcherMessages: msgs,
		KeyToolCallIterations: rounds,
	}), nil
}

func (r *Researcher) compress(ctx context.Context, st *graph.State) (graph.Result, error) {
	system, err := r.opts.CompressInstruction.Resolve(map[string]any{"date": prompts.Today(r.opts.Clock)})
	if err != nil {
		return nil, fmt.Errorf("compress instruction: %w", err)
	}

	topic := graph.Get[string](st, KeyResearchTopic)
	if topic == "" {
		topic = noTopic
	}

	human, err := r.opts.CompressHumanInstruction.Resolve(map[string]any{"research_topic": topic})
	if err != nil {
		return nil, fmt.Errorf("compress instruction: %w", err)
	}

	history := graph.Get[[]core.Message](st, KeyResearcherMessages)

	msgs := make([]core.Message, 0, len(history)+2)
	msgs = append(msgs, core.NewSystemMessage(system))
	msgs = append(msgs, history...)
	msgs = append(msgs, core.NewUserMessage(human))

	resp, err := model.Invoke(ctx, r.opts.CompressModel, model.Request{Messages: msgs})
	if err != nil {
		return nil, err
	}

	return graph.Continue(graph.Update{
		KeyCompressedResearch: resp.Message.Content,
		KeyRawNotes:           RawNotes(history),
	}), nil
}

// RawNotes joins the content of every tool and assistant message with
// newlines. User and system messages never contribute.
func RawNotes(msgs []core.Message) string {
	return strings.Join(core.MessageContents(core.FilterMessages(msgs, core.RoleTool, core.RoleAssistant)), "\n")
}
