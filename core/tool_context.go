package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/researchmesh/logging"
)

// ToolContext provides a constrained surface for tool implementations invoked
// on behalf of an agent: the request context, the originating call and a
// logger scoped to the invocation.
type ToolContext struct {
	ctx            context.Context
	agentName      string
	functionCallID string
	toolName       string
	logger         logging.Logger
}

// NewToolContext constructs a tool context for a single tool call.
func NewToolContext(ctx context.Context, agentName string, call ToolCall, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}

	return &ToolContext{
		ctx:            ctx,
		agentName:      agentName,
		functionCallID: call.ID,
		toolName:       call.Name,
		logger:         logging.OrNoOp(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// FunctionCallID returns the id of the tool call being answered.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// ToolName returns the name the model used to address the tool.
func (tc *ToolContext) ToolName() string { return tc.toolName }

// AgentName returns the name of the agent that requested the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.functionCallID == "" || tc.toolName == "" {
		return fmt.Errorf("invalid ToolContext: call id and tool name are required")
	}

	return nil
}
