package tool

import (
	"context"

	"github.com/hupe1980/researchmesh/core"
)

// WebSearchToolName is the name of the web search tool.
const WebSearchToolName = "tavily_search"

// WebSearcher runs queries and renders the observation (search.Service).
type WebSearcher interface {
	Search(ctx context.Context, queries []string, topic string) (string, error)
}

type webSearchArgs struct {
	Query string `json:"query" description:"A single search query to execute"`
	Topic string `json:"topic,omitempty" description:"Topic to filter results by" enum:"general,news,finance"`
}

// NewWebSearchTool exposes a WebSearcher as a tool. Result count and recency
// window are configured on the searcher and are not visible to the model.
func NewWebSearchTool(searcher WebSearcher) *FunctionTool {
	return NewFunctionToolFromStruct(
		WebSearchToolName,
		"Fetch results from a web search API with content summarization.",
		webSearchArgs{},
		func(tc *core.ToolContext, args map[string]any) (string, error) {
			var in webSearchArgs
			if err := DecodeArgs(args, &in); err != nil {
				return "", err
			}

			return searcher.Search(tc.Context(), []string{in.Query}, in.Topic)
		},
	)
}
