package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), struct{}{}, "v")
	tc := NewToolContext(ctx, "researcher", ToolCall{ID: "call-1", Name: "think_tool"}, nil)

	assert.Equal(t, ctx, tc.Context())
	assert.Equal(t, "call-1", tc.FunctionCallID())
	assert.Equal(t, "think_tool", tc.ToolName())
	assert.Equal(t, "researcher", tc.AgentName())
	assert.NotNil(t, tc.Logger())
	assert.NoError(t, tc.Validate())

	bad := NewToolContext(context.Background(), "a", ToolCall{}, nil)
	assert.Error(t, bad.Validate())
}
