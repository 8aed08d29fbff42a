package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/model"
)

func TestObserver(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SupervisorRound(1)
	m.SupervisorRound(2)
	m.ResearcherStarted()
	m.ResearcherStarted()
	m.ResearcherFinished(time.Second, nil)
	m.ToolCalled("think_tool", time.Millisecond, nil)
	m.ToolCalled("tavily_search", time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 2.0, promtest.ToFloat64(m.SupervisorRounds))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ActiveResearchers))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ToolCalls.WithLabelValues("think_tool", StatusOK)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ToolCalls.WithLabelValues("tavily_search", StatusError)))
	assert.Equal(t, 1, promtest.CollectAndCount(m.ResearcherDuration))
}

func TestCallbacks(t *testing.T) {
	m := New(prometheus.NewRegistry())

	schema := graph.NewSchema(graph.OverrideField("x"))
	boom := errors.New("boom")

	g, err := graph.NewBuilder("g", schema).
		AddNode("a", func(context.Context, *graph.State) (graph.Result, error) {
			return graph.Continue(graph.Update{"x": 1}), nil
		}).
		AddNode("b", func(context.Context, *graph.State) (graph.Result, error) {
			return nil, boom
		}).
		SetEntry("a").
		AddEdge("a", "b").
		AddEdge("b", graph.End).
		Compile(func(o *graph.Options) { o.Callbacks = m.Callbacks() })
	require.NoError(t, err)

	_, err = g.Run(context.Background(), nil)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.NodeVisits.WithLabelValues("g", "a")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.NodeVisits.WithLabelValues("g", "b")))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.NodeErrors.WithLabelValues("g", "a")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.NodeErrors.WithLabelValues("g", "b")))
}

func TestInstrumentModel(t *testing.T) {
	m := New(prometheus.NewRegistry())

	mock := model.NewMockModel("gpt-test", "mock").
		WithHandler(func(context.Context, model.Request) (model.Response, error) {
			return model.Response{
				Message: core.NewAssistantMessage("hi"),
				Usage:   &model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}, nil
		})

	wrapped := m.InstrumentModel(mock)
	assert.Equal(t, "gpt-test", wrapped.Info().Name)

	resp, err := model.Invoke(context.Background(), wrapped, model.Request{Messages: []core.Message{core.NewUserMessage("hello")}})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Message.Content)

	require.Eventually(t, func() bool {
		return promtest.ToFloat64(m.ModelCalls.WithLabelValues("gpt-test", StatusOK)) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 10.0, promtest.ToFloat64(m.ModelTokens.WithLabelValues("gpt-test", "prompt")))
	assert.Equal(t, 5.0, promtest.ToFloat64(m.ModelTokens.WithLabelValues("gpt-test", "completion")))
}

func TestInstrumentModel_Error(t *testing.T) {
	m := New(prometheus.NewRegistry())

	boom := errors.New("quota exceeded")
	wrapped := m.InstrumentModel(model.NewMockModel("gpt-test", "mock").ReplyError(boom))

	_, err := model.Invoke(context.Background(), wrapped, model.Request{})
	require.ErrorIs(t, err, boom)

	require.Eventually(t, func() bool {
		return promtest.ToFloat64(m.ModelCalls.WithLabelValues("gpt-test", StatusError)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SupervisorRound(1)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "researchmesh_supervisor_rounds_total 1"))
}
