package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Constructors(t *testing.T) {
	sys := NewSystemMessage("frame")
	assert.Equal(t, RoleSystem, sys.Role)
	assert.NotEmpty(t, sys.ID)

	tm := NewToolMessage("call-1", "think_tool", "ok")
	assert.Equal(t, RoleTool, tm.Role)
	assert.Equal(t, "call-1", tm.ToolCallID)
	assert.Equal(t, "think_tool", tm.Name)

	am := NewAssistantMessage("", ToolCall{ID: "a", Name: "x"})
	assert.True(t, am.HasToolCalls())
	assert.False(t, NewUserMessage("hi").HasToolCalls())
}

func TestToolCall_ArgumentsJSON(t *testing.T) {
	assert.Equal(t, "{}", ToolCall{Name: "x"}.ArgumentsJSON())
	assert.JSONEq(t, `{"query":"go"}`, ToolCall{Arguments: map[string]any{"query": "go"}}.ArgumentsJSON())
}

func TestFilterMessages(t *testing.T) {
	msgs := []Message{
		NewUserMessage("u"),
		NewAssistantMessage("a1"),
		NewToolMessage("1", "t", "t1"),
		NewAssistantMessage("a2"),
	}

	got := FilterMessages(msgs, RoleTool, RoleAssistant)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a1", "t1", "a2"}, MessageContents(got))
}

func TestTranscript(t *testing.T) {
	msgs := []Message{NewUserMessage("What is Go?"), NewAssistantMessage("A language.")}
	assert.Equal(t, "Human: What is Go?\nAI: A language.", Transcript(msgs))
}

func TestCloneMessages(t *testing.T) {
	assert.Nil(t, CloneMessages(nil))

	src := []Message{NewAssistantMessage("", ToolCall{ID: "1", Name: "n", Arguments: map[string]any{"k": "v"}})}
	cp := CloneMessages(src)
	cp[0].ToolCalls[0].Arguments["k"] = "changed"
	assert.Equal(t, "v", src[0].ToolCalls[0].Arguments["k"])
}
