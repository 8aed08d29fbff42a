package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, reply string, captured *map[string]any) *Model {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	m, err := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.Model = "llama-test"
	})
	require.NoError(t, err)

	return m
}

func TestModel_ToolCalls(t *testing.T) {
	var captured map[string]any

	m := newTestModel(t, `{"model":"llama-test","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"think_tool","arguments":{"reflection":"plan"}}}]},"done":true,"done_reason":"stop","prompt_eval_count":5,"eval_count":2}`, &captured)

	resp, err := model.Invoke(context.Background(), m, model.Request{
		Messages: []core.Message{core.NewUserMessage("hi")},
		Tools: []model.ToolDefinition{model.NewToolDefinition("think_tool", "reflect", map[string]any{
			"type":       "object",
			"properties": map[string]any{"reflection": map[string]any{"type": "string"}},
			"required":   []any{"reflection"},
		})},
	})
	require.NoError(t, err)

	require.Len(t, resp.Message.ToolCalls, 1)
	call := resp.Message.ToolCalls[0]
	assert.Equal(t, "think_tool", call.Name)
	assert.NotEmpty(t, call.ID)
	assert.Equal(t, "plan", call.Arguments["reflection"])
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	assert.Equal(t, false, captured["stream"])
	assert.Len(t, captured["tools"], 1)
}

func TestModel_Structured(t *testing.T) {
	var captured map[string]any

	m := newTestModel(t, `{"model":"llama-test","message":{"role":"assistant","content":"{\"need_clarification\":false,\"question\":\"\",\"verification\":\"ok\"}"},"done":true}`, &captured)

	type clarify struct {
		NeedClarification bool   `json:"need_clarification"`
		Question          string `json:"question"`
		Verification      string `json:"verification"`
	}

	got, err := model.InvokeStructured[clarify](context.Background(), m, model.Request{
		Messages: []core.Message{core.NewUserMessage("topic")},
	}, model.SchemaFor[clarify]("ClarifyWithUser", "clarify"))
	require.NoError(t, err)
	assert.False(t, got.NeedClarification)
	assert.Equal(t, "ok", got.Verification)

	assert.NotNil(t, captured["format"])
}

func TestModel_Info(t *testing.T) {
	m, err := NewModel()
	require.NoError(t, err)
	assert.Equal(t, "ollama", m.Info().Provider)
}
