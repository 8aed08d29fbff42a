package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/internal/testutil"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/tool"
)

func fixedClock() time.Time { return time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC) }

func TestResearcher_ToolLoopPreservesCallOrder(t *testing.T) {
	m := model.NewMockModel("researcher", "mock").
		ReplyToolCalls(
			testutil.CallWithID("c1", tool.ThinkToolName, "reflection", "first"),
			testutil.CallWithID("c2", tool.ThinkToolName, "reflection", "second"),
			testutil.CallWithID("c3", tool.ThinkToolName, "reflection", "third"),
		).
		ReplyText("enough material")
	compress := model.NewMockModel("compress", "mock").ReplyText("compressed findings")

	r, err := NewResearcher(m, func(o *ResearcherOptions) {
		o.CompressModel = compress
		o.MaxParallelTools = 3
		o.Clock = fixedClock
	})
	require.NoError(t, err)

	res, err := r.Research(context.Background(), "espresso grinders")
	require.NoError(t, err)

	assert.Equal(t, "compressed findings", res.CompressedResearch)
	assert.Equal(t,
		"\nReflection recorded: first\nReflection recorded: second\nReflection recorded: third\nenough material",
		res.RawNotes,
	)

	reqs := m.Requests()
	require.Len(t, reqs, 2)

	second := reqs[1].Messages
	require.Len(t, second, 6)

	for i, id := range []string{"c1", "c2", "c3"} {
		msg := second[3+i]
		assert.Equal(t, core.RoleTool, msg.Role)
		assert.Equal(t, id, msg.ToolCallID)
	}

	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, 0, compress.Pending())
}

func TestResearcher_SeedContainsOnlyTopic(t *testing.T) {
	m := model.NewMockModel("researcher", "mock").ReplyText("nothing to search").ReplyText("summary")

	r, err := NewResearcher(m)
	require.NoError(t, err)

	_, err = r.Research(context.Background(), "history of the moka pot")
	require.NoError(t, err)

	first := m.Requests()[0]
	require.Len(t, first.Messages, 2)
	assert.Equal(t, core.RoleSystem, first.Messages[0].Role)
	assert.Equal(t, core.RoleUser, first.Messages[1].Role)
	assert.Equal(t, "history of the moka pot", first.Messages[1].Content)
	require.Len(t, first.Tools, 1)
	assert.Equal(t, tool.ThinkToolName, first.Tools[0].Function.Name)
}

func TestResearcher_EmptyHistoryWithoutTopic(t *testing.T) {
	m := model.NewMockModel("researcher", "mock").ReplyText("scoped").ReplyText("summary")

	r, err := NewResearcher(m)
	require.NoError(t, err)

	st, err := r.Run(context.Background(), graph.Update{})
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, scopingSeed, reqs[0].Messages[1].Content)

	compressMsgs := reqs[1].Messages
	assert.Contains(t, compressMsgs[len(compressMsgs)-1].Content, noTopic)
	assert.Empty(t, reqs[1].Tools)

	assert.Equal(t, "summary", graph.Get[string](st, KeyCompressedResearch))
	assert.Equal(t, []string{"scoped"}, graph.Get[[]string](st, KeyRawNotes))
}

func TestResearcher_CompressSeesWholeHistory(t *testing.T) {
	m := model.NewMockModel("researcher", "mock").
		ReplyToolCalls(testutil.CallWithID("c1", tool.ThinkToolName, "reflection", "plan")).
		ReplyText("done").
		ReplyText("summary")

	r, err := NewResearcher(m)
	require.NoError(t, err)

	res, err := r.Research(context.Background(), "topic")
	require.NoError(t, err)

	compressReq := m.Requests()[2]
	// system, user topic, assistant call, tool, assistant done, human instruction
	require.Len(t, compressReq.Messages, 6)
	assert.Equal(t, core.RoleSystem, compressReq.Messages[0].Role)
	assert.Equal(t, core.RoleUser, compressReq.Messages[5].Role)
	assert.Contains(t, compressReq.Messages[5].Content, "topic")

	assert.Len(t, res.Messages, 4)
}

func TestResearcher_ToolBudget(t *testing.T) {
	m := model.NewMockModel("researcher", "mock").
		ReplyToolCalls(testutil.CallWithID("c1", tool.ThinkToolName, "reflection", "one")).
		ReplyToolCalls(testutil.CallWithID("c2", tool.ThinkToolName, "reflection", "two"))

	r, err := NewResearcher(m, func(o *ResearcherOptions) { o.MaxToolCallIterations = 1 })
	require.NoError(t, err)

	_, err = r.Research(context.Background(), "topic")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrLimitExceeded)

	var nodeErr *graph.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, ResearcherToolsNode, nodeErr.Node)
}

func TestResearcher_UnknownToolIsAnError(t *testing.T) {
	m := model.NewMockModel("researcher", "mock").
		ReplyToolCalls(testutil.CallWithID("c1", "does_not_exist"))

	r, err := NewResearcher(m)
	require.NoError(t, err)

	_, err = r.Research(context.Background(), "topic")
	require.Error(t, err)
	assert.ErrorIs(t, err, tool.ErrToolNotFound)
}

func TestResearcher_ModelErrorPropagates(t *testing.T) {
	boom := errors.New("provider unavailable")
	m := model.NewMockModel("researcher", "mock").ReplyError(boom)

	r, err := NewResearcher(m)
	require.NoError(t, err)

	_, err = r.Research(context.Background(), "topic")
	assert.ErrorIs(t, err, boom)
}

func TestResearcher_ReportsToolCalls(t *testing.T) {
	m := model.NewMockModel("researcher", "mock").
		ReplyToolCalls(testutil.CallWithID("c1", tool.ThinkToolName, "reflection", "plan")).
		ReplyText("done").
		ReplyText("summary")

	obs := &recordingObserver{}

	r, err := NewResearcher(m, func(o *ResearcherOptions) { o.Observer = obs })
	require.NoError(t, err)

	_, err = r.Research(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, []string{tool.ThinkToolName}, obs.toolNames())
}

func TestRawNotes(t *testing.T) {
	msgs := testutil.NewConversation().
		System("sys").
		User("question").
		AssistantCalls(testutil.Call(tool.ThinkToolName, "reflection", "x")).
		ToolResult("observation").
		Assistant("answer").
		Build()

	assert.Equal(t, "\nobservation\nanswer", RawNotes(msgs))
	assert.Equal(t, "", RawNotes(nil))
}

func TestNewResearcher_RequiresModel(t *testing.T) {
	_, err := NewResearcher(nil)
	assert.Error(t, err)
}
