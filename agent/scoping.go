package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/prompts"
)

// Scoping graph node names.
const (
	ClarifyNode = "clarify_with_user"
	BriefNode   = "write_research_brief"
)

// ClarifyWithUser is the structured decision of the clarification step.
type ClarifyWithUser struct {
	NeedFurtherClarification bool   `json:"need_further_clarification" description:"Whether the user needs to be asked a further question"`
	Question                 string `json:"question" description:"A question to ask the user to clarify the report scope"`
	Verification             string `json:"verification" description:"Verify message that we will start research after the user has provided the necessary information."`
}

// ResearchQuestion is the structured result of the brief-writing step.
type ResearchQuestion struct {
	ResearchBrief string `json:"research_brief" description:"A research question that will be used to guide the research."`
}

// ScoperOptions configures a Scoper.
type ScoperOptions struct {
	ClarifyInstruction Instruction // variables: messages, date
	BriefInstruction   Instruction // variables: messages, date

	Clock  prompts.Clock
	Logger logging.Logger
}

// Scoper is the scoping gate. It decides whether the conversation carries
// enough detail and, if so, turns it into a research brief.
type Scoper struct {
	model model.Model
	opts  ScoperOptions
}

// ScopeResult is the outcome of a standalone scoping run.
type ScopeResult struct {
	// Messages holds the assistant messages the gate added.
	Messages           []core.Message
	ResearchBrief      string
	NeedsClarification bool
}

// NewScoper creates a scoping gate around model m.
func NewScoper(m model.Model, optFns ...func(o *ScoperOptions)) (*Scoper, error) {
	if m == nil {
		return nil, fmt.Errorf("scoper: model is required")
	}

	opts := ScoperOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.ClarifyInstruction = opts.ClarifyInstruction.or(prompts.ClarifyWithUser)
	opts.BriefInstruction = opts.BriefInstruction.or(prompts.ResearchBrief)
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Scoper{model: m, opts: opts}, nil
}

// Graph compiles the gate as a standalone graph over ScopingStateSchema.
func (s *Scoper) Graph(optFns ...func(o *graph.Options)) (*graph.Graph, error) {
	return graph.NewBuilder("scoping", ScopingStateSchema()).
		AddNode(ClarifyNode, s.Clarify).
		AddNode(BriefNode, s.WriteBrief).
		SetEntry(ClarifyNode).
		AddEdge(BriefNode, graph.End).
		Compile(optFns...)
}

// Scope runs the gate over a conversation.
func (s *Scoper) Scope(ctx context.Context, msgs []core.Message) (ScopeResult, error) {
	g, err := s.Graph(func(o *graph.Options) { o.Logger = s.opts.Logger })
	if err != nil {
		return ScopeResult{}, err
	}

	st, err := g.Run(ctx, graph.Update{KeyMessages: core.CloneMessages(msgs)})
	if err != nil {
		return ScopeResult{}, err
	}

	all := graph.Get[[]core.Message](st, KeyMessages)
	brief := graph.Get[string](st, KeyResearchBrief)

	return ScopeResult{
		Messages:           all[len(msgs):],
		ResearchBrief:      brief,
		NeedsClarification: brief == "",
	}, nil
}

// Clarify is the clarify_with_user node. It either ends the run with a
// question for the user or continues to the brief with a verification
// message.
func (s *Scoper) Clarify(ctx context.Context, st *graph.State) (graph.Result, error) {
	msgs := graph.Get[[]core.Message](st, KeyMessages)

	prompt, err := s.opts.ClarifyInstruction.Resolve(map[string]any{
		"messages": core.Transcript(msgs),
		"date":     prompts.Today(s.opts.Clock),
	})
	if err != nil {
		return nil, fmt.Errorf("clarify instruction: %w", err)
	}

	decision, err := model.InvokeStructured[ClarifyWithUser](ctx, s.model, model.Request{
		Messages: []core.Message{core.NewUserMessage(prompt)},
	}, model.SchemaFor[ClarifyWithUser]("ClarifyWithUser", "Decide whether the user must be asked a clarifying question."))
	if err != nil {
		return nil, err
	}

	if decision.NeedFurtherClarification {
		if decision.Question == "" {
			return nil, ErrEmptyQuestion
		}

		s.opts.Logger.Info("scoping.clarification.requested")

		return graph.Goto(graph.End, graph.Update{KeyMessages: core.NewAssistantMessage(decision.Question)}), nil
	}

	if decision.Verification == "" {
		return nil, ErrEmptyVerification
	}

	return graph.Goto(BriefNode, graph.Update{KeyMessages: core.NewAssistantMessage(decision.Verification)}), nil
}

// WriteBrief is the write_research_brief node. It stores the brief and seeds
// the supervisor history with it.
func (s *Scoper) WriteBrief(ctx context.Context, st *graph.State) (graph.Result, error) {
	msgs := graph.Get[[]core.Message](st, KeyMessages)

	prompt, err := s.opts.BriefInstruction.Resolve(map[string]any{
		"messages": core.Transcript(msgs),
		"date":     prompts.Today(s.opts.Clock),
	})
	if err != nil {
		return nil, fmt.Errorf("brief instruction: %w", err)
	}

	q, err := model.InvokeStructured[ResearchQuestion](ctx, s.model, model.Request{
		Messages: []core.Message{core.NewUserMessage(prompt)},
	}, model.SchemaFor[ResearchQuestion]("ResearchQuestion", "The research brief that guides the research."))
	if err != nil {
		return nil, err
	}

	if q.ResearchBrief == "" {
		return nil, ErrEmptyBrief
	}

	s.opts.Logger.Info("scoping.brief.written", "length", len(q.ResearchBrief))

	return graph.Continue(graph.Update{
		KeyResearchBrief:      q.ResearchBrief,
		KeySupervisorMessages: BriefMessage(q.ResearchBrief),
	}), nil
}
