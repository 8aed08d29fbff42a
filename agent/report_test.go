package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/model"
)

func TestReportWriter_Write(t *testing.T) {
	m := model.NewMockModel("report", "mock").ReplyText("# Grinders\n\nBuy a flat burr.")

	w, err := NewReportWriter(m, func(o *ReportWriterOptions) { o.Clock = fixedClock })
	require.NoError(t, err)

	report, err := w.Write(context.Background(), "Compare grinders", []string{"note one", "note two"})
	require.NoError(t, err)

	assert.Equal(t, "# Grinders\n\nBuy a flat burr.", report.Content)
	assert.Equal(t, core.RoleAssistant, report.Message.Role)
	assert.Equal(t, "here's the final report: # Grinders\n\nBuy a flat burr.", report.Message.Content)

	req := m.Requests()[0]
	require.Len(t, req.Messages, 1)
	assert.Empty(t, req.Tools)
	assert.Nil(t, req.Output)

	prompt := req.Messages[0].Content
	assert.Contains(t, prompt, "Compare grinders")
	assert.Contains(t, prompt, "note one\nnote two")
	assert.Contains(t, prompt, "Sun Oct 18, 2026")
}

func TestReportWriter_CustomInstruction(t *testing.T) {
	m := model.NewMockModel("report", "mock").ReplyText("short")

	w, err := NewReportWriter(m, func(o *ReportWriterOptions) {
		o.Instruction = NewInstructionFromText("Brief: {{.research_brief}} / {{.findings}}")
	})
	require.NoError(t, err)

	_, err = w.Write(context.Background(), "b", []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, "Brief: b / x", m.Requests()[0].Messages[0].Content)
}

func TestReportWriter_Error(t *testing.T) {
	boom := errors.New("context window exceeded")
	m := model.NewMockModel("report", "mock").ReplyError(boom)

	w, err := NewReportWriter(m)
	require.NoError(t, err)

	_, err = w.Write(context.Background(), "b", nil)
	assert.ErrorIs(t, err, boom)
}
