package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/researchmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clarification struct {
	NeedClarification bool   `json:"need_clarification"`
	Question          string `json:"question"`
}

func TestInvoke_FinalResponse(t *testing.T) {
	m := NewMockModel("mock", "test").ReplyText("hello")

	resp, err := Invoke(context.Background(), m, Request{Messages: []core.Message{core.NewUserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Message.Content)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hi", reqs[0].Messages[0].Content)
}

func TestInvoke_Error(t *testing.T) {
	boom := errors.New("provider down")
	m := NewMockModel("mock", "test").ReplyError(boom)

	_, err := Invoke(context.Background(), m, Request{})
	assert.ErrorIs(t, err, boom)
}

func TestInvoke_ScriptExhausted(t *testing.T) {
	m := NewMockModel("mock", "test")

	_, err := Invoke(context.Background(), m, Request{})
	assert.Error(t, err)
}

func TestInvokeStructured(t *testing.T) {
	schema := SchemaFor[clarification]("ClarifyWithUser", "decide")
	assert.Equal(t, "ClarifyWithUser", schema.Name)

	m := NewMockModel("mock", "test").ReplyStructured(clarification{NeedClarification: true, Question: "Which years?"})

	got, err := InvokeStructured[clarification](context.Background(), m, Request{
		Tools: []ToolDefinition{NewToolDefinition("x", "", nil)},
	}, schema)
	require.NoError(t, err)
	assert.True(t, got.NeedClarification)
	assert.Equal(t, "Which years?", got.Question)

	reqs := m.Requests()
	require.NotNil(t, reqs[0].Output)
	assert.Equal(t, "ClarifyWithUser", reqs[0].Output.Name)
	assert.Empty(t, reqs[0].Tools, "structured calls carry no tools")
}

func TestInvokeStructured_FallsBackToContent(t *testing.T) {
	m := NewMockModel("mock", "test").ReplyText(`{"need_clarification":false,"question":""}`)

	got, err := InvokeStructured[clarification](context.Background(), m, Request{}, SchemaFor[clarification]("c", ""))
	require.NoError(t, err)
	assert.False(t, got.NeedClarification)
}

func TestInvokeStructured_EmptyOrMalformed(t *testing.T) {
	tests := []struct {
		name  string
		model *MockModel
	}{
		{"empty", NewMockModel("m", "t").ReplyText("")},
		{"null", NewMockModel("m", "t").ReplyText("null")},
		{"malformed", NewMockModel("m", "t").ReplyText("not json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InvokeStructured[clarification](context.Background(), tt.model, Request{}, SchemaFor[clarification]("c", ""))
			assert.ErrorIs(t, err, ErrNoStructuredOutput)
		})
	}
}

func TestMockModel_Handler(t *testing.T) {
	m := NewMockModel("mock", "test").
		ReplyText("scripted").
		WithHandler(func(_ context.Context, req Request) (Response, error) {
			return Response{Message: core.NewAssistantMessage("handled " + req.Messages[0].Content)}, nil
		})

	r1, err := Invoke(context.Background(), m, Request{Messages: []core.Message{core.NewUserMessage("a")}})
	require.NoError(t, err)
	assert.Equal(t, "scripted", r1.Message.Content)

	r2, err := Invoke(context.Background(), m, Request{Messages: []core.Message{core.NewUserMessage("b")}})
	require.NoError(t, err)
	assert.Equal(t, "handled b", r2.Message.Content)
	assert.Equal(t, 0, m.Pending())
}

func TestWithRateLimit(t *testing.T) {
	base := NewMockModel("mock", "test")
	assert.Same(t, base, WithRateLimit(base, 0, 0))

	limited := WithRateLimit(base.ReplyText("one").ReplyText("two"), 1, 1)

	_, err := Invoke(context.Background(), limited, Request{})
	require.NoError(t, err)

	// the burst is spent; the next call has to wait longer than the deadline allows
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = Invoke(ctx, limited, Request{})
	assert.Error(t, err)
	assert.Equal(t, 1, base.Pending())
}
