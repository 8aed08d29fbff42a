package testutil

import (
	"fmt"

	"github.com/hupe1980/researchmesh/core"
)

// Conversation builds message transcripts for tests.
//
//	msgs := testutil.NewConversation().
//		User("compare espresso grinders").
//		AssistantCalls(testutil.Call("tavily_search", "query", "espresso grinders")).
//		ToolResult("Search results: ...").
//		Build()
type Conversation struct {
	msgs     []core.Message
	lastCall []core.ToolCall
	seq      int
}

// NewConversation starts an empty transcript.
func NewConversation() *Conversation { return &Conversation{} }

// System appends a system message.
func (c *Conversation) System(text string) *Conversation {
	c.msgs = append(c.msgs, core.NewSystemMessage(text))
	return c
}

// User appends a user message.
func (c *Conversation) User(text string) *Conversation {
	c.msgs = append(c.msgs, core.NewUserMessage(text))
	return c
}

// Assistant appends a plain assistant message.
func (c *Conversation) Assistant(text string) *Conversation {
	c.msgs = append(c.msgs, core.NewAssistantMessage(text))
	return c
}

// AssistantCalls appends an assistant message carrying tool calls. Calls
// without an id get a sequential one ("call_1", "call_2", ...).
func (c *Conversation) AssistantCalls(calls ...core.ToolCall) *Conversation {
	for i := range calls {
		if calls[i].ID == "" {
			c.seq++
			calls[i].ID = fmt.Sprintf("call_%d", c.seq)
		}
	}

	c.lastCall = calls
	c.msgs = append(c.msgs, core.NewAssistantMessage("", calls...))

	return c
}

// ToolResult answers the next unanswered call of the last AssistantCalls.
func (c *Conversation) ToolResult(content string) *Conversation {
	if len(c.lastCall) == 0 {
		panic("testutil: ToolResult without pending tool call")
	}

	call := c.lastCall[0]
	c.lastCall = c.lastCall[1:]
	c.msgs = append(c.msgs, core.NewToolMessage(call.ID, call.Name, content))

	return c
}

// Build returns a copy of the transcript.
func (c *Conversation) Build() []core.Message { return core.CloneMessages(c.msgs) }

// Call builds a tool call from alternating key/value arguments.
func Call(name string, kv ...any) core.ToolCall {
	args := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args[fmt.Sprint(kv[i])] = kv[i+1]
	}

	return core.ToolCall{Name: name, Arguments: args}
}

// CallWithID builds a tool call with an explicit id.
func CallWithID(id, name string, kv ...any) core.ToolCall {
	c := Call(name, kv...)
	c.ID = id

	return c
}
