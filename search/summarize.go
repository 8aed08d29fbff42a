package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/model"
	"github.com/hupe1980/researchmesh/prompts"
)

const (
	noSummary  = "Error: Could not generate summary"
	noExcerpts = "Error: Could not extract excerpts"
)

// Summarizer condenses the raw content of one page.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// Summary is the structured output requested from the summarization model.
type Summary struct {
	Summary     string `json:"summary" description:"Concise summary of the webpage content"`
	KeyExcerpts string `json:"key_excerpts" description:"Important quotes and excerpts from the content"`
}

// ModelSummarizer summarizes pages with a language model.
type ModelSummarizer struct {
	model model.Model
	clock prompts.Clock
}

// NewModelSummarizer creates a summarizer. A nil clock uses time.Now.
func NewModelSummarizer(m model.Model, clock prompts.Clock) *ModelSummarizer {
	return &ModelSummarizer{model: m, clock: clock}
}

// Summarize renders the summary block. An absent structured result falls back
// to a fixed error summary; transport errors are returned.
func (s *ModelSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	prompt, err := prompts.Render(prompts.SummarizeWebpage, map[string]any{
		"webpage_content": content,
		"date":            prompts.Today(s.clock),
	})
	if err != nil {
		return "", err
	}

	res, err := model.InvokeStructured[Summary](ctx, s.model, model.Request{
		Messages: []core.Message{core.NewUserMessage(prompt)},
	}, model.SchemaFor[Summary]("Summary", "Summary of a webpage"))
	if err != nil {
		if errors.Is(err, model.ErrNoStructuredOutput) {
			return FormatSummary(Summary{Summary: noSummary, KeyExcerpts: noExcerpts}), nil
		}

		return "", fmt.Errorf("summarize webpage: %w", err)
	}

	if res.Summary == "" {
		res.Summary = noSummary
	}

	if res.KeyExcerpts == "" {
		res.KeyExcerpts = noExcerpts
	}

	return FormatSummary(res), nil
}

// FormatSummary renders a summary as tagged blocks.
func FormatSummary(s Summary) string {
	return fmt.Sprintf("<summary>\n%s\n</summary>\n<key_excerpts>\n%s\n</key_excerpts>", s.Summary, s.KeyExcerpts)
}
