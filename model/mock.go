package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/researchmesh/core"
)

// MockReply is one scripted outcome of a MockModel call.
type MockReply struct {
	Response Response
	Err      error
}

// MockModel is a lightweight scripted Model useful for tests & examples.
// Scripted replies are consumed in order; once exhausted the handler (if any)
// answers. Every request is recorded. Safe for concurrent use.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	script   []MockReply
	handler  func(ctx context.Context, req Request) (Response, error)
	requests []Request
}

// NewMockModel constructs a MockModel with tool and structured output support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:                     name,
			Provider:                 provider,
			SupportsTools:            true,
			SupportsStructuredOutput: true,
		},
	}
}

// Reply queues a final assistant message.
func (m *MockModel) Reply(msg core.Message) *MockModel {
	return m.enqueue(MockReply{Response: Response{Message: msg, FinishReason: "stop"}})
}

// ReplyText queues a plain assistant text answer.
func (m *MockModel) ReplyText(text string) *MockModel {
	return m.Reply(core.NewAssistantMessage(text))
}

// ReplyToolCalls queues an assistant message requesting the given tool calls.
func (m *MockModel) ReplyToolCalls(calls ...core.ToolCall) *MockModel {
	return m.enqueue(MockReply{Response: Response{Message: core.NewAssistantMessage("", calls...), FinishReason: "tool_calls"}})
}

// ReplyStructured queues a structured result encoded from v.
func (m *MockModel) ReplyStructured(v any) *MockModel {
	b, err := json.Marshal(v)
	if err != nil {
		return m.ReplyError(err)
	}

	return m.enqueue(MockReply{Response: Response{Message: core.NewAssistantMessage(""), Structured: b, FinishReason: "stop"}})
}

// ReplyError queues a failed call.
func (m *MockModel) ReplyError(err error) *MockModel {
	return m.enqueue(MockReply{Err: err})
}

// WithHandler sets the fallback used once the script is exhausted.
func (m *MockModel) WithHandler(fn func(ctx context.Context, req Request) (Response, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handler = fn

	return m
}

func (m *MockModel) enqueue(r MockReply) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, r)

	return m
}

// Requests returns a copy of all recorded requests.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request{}, m.requests...)
}

// Pending returns the number of scripted replies not yet consumed.
func (m *MockModel) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.script)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	recorded := req
	recorded.Messages = core.CloneMessages(req.Messages)

	m.mu.Lock()
	m.requests = append(m.requests, recorded)

	var (
		reply   MockReply
		have    bool
		handler = m.handler
	)

	if len(m.script) > 0 {
		reply, have = m.script[0], true
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if !have {
			if handler == nil {
				errCh <- fmt.Errorf("mock model %s: no scripted response left", m.info.Name)
				return
			}

			resp, err := handler(ctx, req)
			reply = MockReply{Response: resp, Err: err}
		}

		if reply.Err != nil {
			errCh <- reply.Err
			return
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- reply.Response:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
