package core

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a Message.
type Role string

const (
	// RoleSystem marks instructions that frame a model call.
	RoleSystem Role = "system"
	// RoleUser marks human (or orchestrator supplied human-style) input.
	RoleUser Role = "user"
	// RoleAssistant marks model output, optionally carrying tool calls.
	RoleAssistant Role = "assistant"
	// RoleTool marks the observation produced by a tool invocation.
	RoleTool Role = "tool"
)

// ToolCall is a structured request emitted by a model to invoke a named tool.
// Arguments are already decoded; adapters are responsible for the wire format.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ArgumentsJSON returns the arguments encoded as a JSON object. A nil map
// encodes as "{}" so providers always receive a valid object.
func (tc ToolCall) ArgumentsJSON() string {
	if len(tc.Arguments) == 0 {
		return "{}"
	}

	b, err := json.Marshal(tc.Arguments)
	if err != nil {
		return "{}"
	}

	return string(b)
}

// Message is a single conversational turn. Assistant messages may carry
// ToolCalls; tool messages carry the ToolCallID they answer and the Name of
// the tool that produced them.
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{ID: NewID(), Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage creates the observation answering the tool call with the given id.
func NewToolMessage(toolCallID, name, content string) Message {
	return Message{ID: NewID(), Role: RoleTool, Content: content, ToolCallID: toolCallID, Name: name}
}

// HasToolCalls reports whether the message requests at least one tool invocation.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	cp := m
	if m.ToolCalls != nil {
		cp.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			cp.ToolCalls[i] = tc
			if tc.Arguments != nil {
				args := make(map[string]any, len(tc.Arguments))
				for k, v := range tc.Arguments {
					args[k] = v
				}
				cp.ToolCalls[i].Arguments = args
			}
		}
	}

	return cp
}

// CloneMessages deep copies a message slice. A nil input yields nil.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}

	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}

	return out
}

// FilterMessages returns the messages whose role is one of roles, preserving order.
func FilterMessages(msgs []Message, roles ...Role) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		for _, r := range roles {
			if m.Role == r {
				out = append(out, m)
				break
			}
		}
	}

	return out
}

// MessageContents extracts the content of every message, preserving order.
func MessageContents(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}

	return out
}

// Transcript renders messages as "Prefix: content" lines, the plain text
// form used when a conversation is embedded into a single prompt.
func Transcript(msgs []Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, rolePrefix(m.Role)+": "+m.Content)
	}

	return strings.Join(lines, "\n")
}

func rolePrefix(r Role) string {
	switch r {
	case RoleUser:
		return "Human"
	case RoleAssistant:
		return "AI"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}
