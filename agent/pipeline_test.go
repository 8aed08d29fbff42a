package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/model"
)

type pipelineModels struct {
	scoping    *model.MockModel
	supervisor *model.MockModel
	research   *model.MockModel
	report     *model.MockModel
}

func newPipelineModels() pipelineModels {
	return pipelineModels{
		scoping:    model.NewMockModel("scoping", "mock"),
		supervisor: model.NewMockModel("supervisor", "mock"),
		research:   model.NewMockModel("research", "mock"),
		report:     model.NewMockModel("report", "mock"),
	}
}

func (pm pipelineModels) build(t *testing.T, optFns ...func(o *PipelineOptions)) *Pipeline {
	t.Helper()

	fns := append([]func(o *PipelineOptions){func(o *PipelineOptions) {
		o.ScopingModel = pm.scoping
		o.SupervisorModel = pm.supervisor
		o.ResearchModel = pm.research
		o.ReportModel = pm.report
		o.Clock = fixedClock
	}}, optFns...)

	p, err := NewPipeline(pm.scoping, fns...)
	require.NoError(t, err)

	return p
}

func TestPipeline_EndToEnd(t *testing.T) {
	pm := newPipelineModels()
	pm.scoping.
		ReplyStructured(ClarifyWithUser{Verification: "Starting research."}).
		ReplyStructured(ResearchQuestion{ResearchBrief: "Compare burr grinders"})
	pm.supervisor.
		ReplyToolCalls(delegate("c1", "flat burr grinders")).
		ReplyToolCalls(complete("c2"))
	pm.research.
		ReplyText("flat burrs are consistent").
		ReplyText("compressed flat burr findings")
	pm.report.ReplyText("# Report")

	p := pm.build(t)

	var (
		mu    sync.Mutex
		nodes []string
	)

	ctx := graph.WithCallbacks(context.Background(), graph.NewFunctionCallback(graph.CallbackAfterNode, func(_ context.Context, cc *graph.CallbackContext) error {
		if cc.Graph == p.Graph().Name() {
			mu.Lock()
			nodes = append(nodes, cc.Node)
			mu.Unlock()
		}

		return nil
	}))

	out, err := p.Run(ctx, []core.Message{core.NewUserMessage("Which burr grinder should I buy?")})
	require.NoError(t, err)

	assert.False(t, out.NeedsClarification)
	assert.Empty(t, out.Question())
	assert.Equal(t, "Compare burr grinders", out.ResearchBrief)
	assert.Equal(t, []string{"compressed flat burr findings"}, out.Notes)
	assert.Equal(t, []string{"flat burrs are consistent"}, out.RawNotes)
	assert.Equal(t, "# Report", out.FinalReport)

	require.Len(t, out.Messages, 3)
	assert.Equal(t, "Which burr grinder should I buy?", out.Messages[0].Content)
	assert.Equal(t, "Starting research.", out.Messages[1].Content)
	assert.Equal(t, "here's the final report: # Report", out.Messages[2].Content)

	assert.Equal(t, []string{ClarifyNode, BriefNode, SupervisorNode, ReportNode}, nodes)

	// The researcher was seeded with the delegated topic only.
	first := pm.research.Requests()[0]
	require.Len(t, first.Messages, 2)
	assert.Equal(t, "flat burr grinders", first.Messages[1].Content)

	// The supervisor started from the brief seed.
	assert.Equal(t, "Compare burr grinders.", pm.supervisor.Requests()[0].Messages[1].Content)
}

func TestPipeline_Clarification(t *testing.T) {
	pm := newPipelineModels()
	pm.scoping.ReplyStructured(ClarifyWithUser{NeedFurtherClarification: true, Question: "For home or cafe use?"})

	p := pm.build(t)

	out, err := p.Run(context.Background(), []core.Message{core.NewUserMessage("grinder?")})
	require.NoError(t, err)

	assert.True(t, out.NeedsClarification)
	assert.Equal(t, "For home or cafe use?", out.Question())
	assert.Empty(t, out.FinalReport)
	assert.Empty(t, pm.supervisor.Requests())
	assert.Empty(t, pm.report.Requests())
}

func TestPipeline_SupervisorFailureStillReports(t *testing.T) {
	pm := newPipelineModels()
	pm.scoping.
		ReplyStructured(ClarifyWithUser{Verification: "ok"}).
		ReplyStructured(ResearchQuestion{ResearchBrief: "brief"})
	pm.supervisor.
		ReplyToolCalls(delegate("c1", "a")).
		ReplyToolCalls(delegate("c2", "b"))
	pm.report.ReplyText("partial report")

	runner := newFakeRunner()
	runner.fail["b"] = errors.New("researcher crashed")

	p := pm.build(t, func(o *PipelineOptions) { o.Runner = runner })

	out, err := p.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
	require.NoError(t, err)

	assert.Equal(t, []string{"findings on a"}, out.Notes)
	assert.Equal(t, "partial report", out.FinalReport)
	assert.Contains(t, pm.report.Requests()[0].Messages[0].Content, "findings on a")
}

func TestPipeline_ErrorKeepsPartialState(t *testing.T) {
	pm := newPipelineModels()
	pm.scoping.
		ReplyStructured(ClarifyWithUser{Verification: "ok"}).
		ReplyStructured(ResearchQuestion{ResearchBrief: "brief"})
	boom := errors.New("supervisor model down")
	pm.supervisor.ReplyError(boom)

	p := pm.build(t)

	out, err := p.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	require.NotNil(t, out)
	assert.False(t, out.NeedsClarification)
	assert.Equal(t, "brief", out.ResearchBrief)
	assert.Len(t, out.Messages, 2)
}

func TestPipeline_RequiresInput(t *testing.T) {
	p := newPipelineModels().build(t)

	_, err := p.Run(context.Background(), nil)
	assert.Error(t, err)
}
