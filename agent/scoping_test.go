package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/model"
)

func TestScoper_AsksForClarification(t *testing.T) {
	m := model.NewMockModel("scoper", "mock").ReplyStructured(ClarifyWithUser{
		NeedFurtherClarification: true,
		Question:                 "Which price range are you interested in?",
	})

	s, err := NewScoper(m)
	require.NoError(t, err)

	res, err := s.Scope(context.Background(), []core.Message{core.NewUserMessage("best espresso grinder?")})
	require.NoError(t, err)

	assert.True(t, res.NeedsClarification)
	assert.Empty(t, res.ResearchBrief)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, core.RoleAssistant, res.Messages[0].Role)
	assert.Equal(t, "Which price range are you interested in?", res.Messages[0].Content)
	assert.Len(t, m.Requests(), 1)
}

func TestScoper_WritesBrief(t *testing.T) {
	m := model.NewMockModel("scoper", "mock").
		ReplyStructured(ClarifyWithUser{Verification: "I will research espresso grinders under 500 EUR."}).
		ReplyStructured(ResearchQuestion{ResearchBrief: "Compare espresso grinders under 500 EUR"})

	s, err := NewScoper(m, func(o *ScoperOptions) { o.Clock = fixedClock })
	require.NoError(t, err)

	res, err := s.Scope(context.Background(), []core.Message{core.NewUserMessage("grinders under 500 EUR")})
	require.NoError(t, err)

	assert.False(t, res.NeedsClarification)
	assert.Equal(t, "Compare espresso grinders under 500 EUR", res.ResearchBrief)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "I will research espresso grinders under 500 EUR.", res.Messages[0].Content)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	require.NotNil(t, reqs[0].Output)
	assert.Equal(t, "ClarifyWithUser", reqs[0].Output.Name)
	assert.Contains(t, reqs[0].Messages[0].Content, "Human: grinders under 500 EUR")
	assert.Contains(t, reqs[0].Messages[0].Content, "Sun Oct 18, 2026")

	// The brief sees the verification message as part of the transcript.
	require.NotNil(t, reqs[1].Output)
	assert.Equal(t, "ResearchQuestion", reqs[1].Output.Name)
	assert.Contains(t, reqs[1].Messages[0].Content, "AI: I will research espresso grinders under 500 EUR.")
}

func TestScoper_MissingStructuredResultIsFatal(t *testing.T) {
	m := model.NewMockModel("scoper", "mock").ReplyText("")

	s, err := NewScoper(m)
	require.NoError(t, err)

	_, err = s.Scope(context.Background(), []core.Message{core.NewUserMessage("hi")})
	assert.ErrorIs(t, err, model.ErrNoStructuredOutput)
}

func TestScoper_EmptyBriefIsFatal(t *testing.T) {
	m := model.NewMockModel("scoper", "mock").
		ReplyStructured(ClarifyWithUser{Verification: "ok"}).
		ReplyStructured(ResearchQuestion{})

	s, err := NewScoper(m)
	require.NoError(t, err)

	_, err = s.Scope(context.Background(), []core.Message{core.NewUserMessage("hi")})
	assert.ErrorIs(t, err, ErrEmptyBrief)
}

func TestScoper_EmptyQuestionIsFatal(t *testing.T) {
	m := model.NewMockModel("scoper", "mock").ReplyStructured(ClarifyWithUser{NeedFurtherClarification: true})

	s, err := NewScoper(m)
	require.NoError(t, err)

	res, err := s.Scope(context.Background(), []core.Message{core.NewUserMessage("hi")})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Empty(t, res.Messages)
	assert.False(t, res.NeedsClarification)
}

func TestScoper_EmptyVerificationIsFatal(t *testing.T) {
	m := model.NewMockModel("scoper", "mock").ReplyStructured(ClarifyWithUser{})

	s, err := NewScoper(m)
	require.NoError(t, err)

	_, err = s.Scope(context.Background(), []core.Message{core.NewUserMessage("hi")})
	assert.ErrorIs(t, err, ErrEmptyVerification)
	assert.Len(t, m.Requests(), 1)
}
