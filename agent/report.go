package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/prompts"
)

// ReportNode is the final report graph node name.
const ReportNode = "final_report_generation"

const reportMessagePrefix = "here's the final report: "

// Report is the synthesized answer.
type Report struct {
	Content string
	// Message is the assistant-facing summary appended to the conversation.
	Message core.Message
}

// ReportWriterOptions configures a ReportWriter.
type ReportWriterOptions struct {
	Instruction Instruction // variables: research_brief, findings, date
	Clock       prompts.Clock
	Logger      logging.Logger
}

// ReportWriter turns the brief and the research notes into the final report
// with a single unconstrained model call.
type ReportWriter struct {
	model model.Model
	opts  ReportWriterOptions
}

// NewReportWriter creates a report writer around model m.
func NewReportWriter(m model.Model, optFns ...func(o *ReportWriterOptions)) (*ReportWriter, error) {
	if m == nil {
		return nil, fmt.Errorf("report writer: model is required")
	}

	opts := ReportWriterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Instruction = opts.Instruction.or(prompts.FinalReport)
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &ReportWriter{model: m, opts: opts}, nil
}

// Write synthesizes the report. Notes are joined with newlines.
func (w *ReportWriter) Write(ctx context.Context, brief string, notes []string) (Report, error) {
	prompt, err := w.opts.Instruction.Resolve(map[string]any{
		"research_brief": brief,
		"findings":       strings.Join(notes, "\n"),
		"date":           prompts.Today(w.opts.Clock),
	})
	if err != nil {
		return Report{}, fmt.Errorf("report instruction: %w", err)
	}

	resp, err := model.Invoke(ctx, w.model, model.Request{
		Messages: []core.Message{core.NewUserMessage(prompt)},
	})
	if err != nil {
		return Report{}, err
	}

	content := resp.Message.Content

	w.opts.Logger.Info("report.written", "notes", len(notes), "length", len(content))

	return Report{
		Content: content,
		Message: core.NewAssistantMessage(reportMessagePrefix + content),
	}, nil
}

// Node is the final_report_generation graph node.
func (w *ReportWriter) Node(ctx context.Context, st *graph.State) (graph.Result, error) {
	report, err := w.Write(ctx, graph.Get[string](st, KeyResearchBrief), graph.Get[[]string](st, KeyNotes))
	if err != nil {
		return nil, err
	}

	return graph.Continue(graph.Update{
		KeyFinalReport: report.Content,
		KeyMessages:    report.Message,
	}), nil
}
