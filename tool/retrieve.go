package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/researchmesh/core"
)

// RetrieveToolName is the name of the document retrieval tool.
const RetrieveToolName = "retrieve_documents"

// DefaultRetrieveK is the number of chunks returned per query.
const DefaultRetrieveK = 4

type retrieveArgs struct {
	Query string `json:"query" description:"The question to look up in the indexed documents"`
}

// NewRetrieveTool exposes a core.Retriever as a tool. k <= 0 uses DefaultRetrieveK.
func NewRetrieveTool(retriever core.Retriever, k int) *FunctionTool {
	if k <= 0 {
		k = DefaultRetrieveK
	}

	return NewFunctionToolFromStruct(
		RetrieveToolName,
		"Retrieve passages relevant to the query from the uploaded documents.",
		retrieveArgs{},
		func(tc *core.ToolContext, args map[string]any) (string, error) {
			var in retrieveArgs
			if err := DecodeArgs(args, &in); err != nil {
				return "", err
			}

			results, err := retriever.Search(tc.Context(), in.Query, k)
			if err != nil {
				return "", fmt.Errorf("document retrieval failed: %w", err)
			}

			return FormatDocuments(results), nil
		},
	)
}

// FormatDocuments renders retrieved chunks as "source: …\n content: …" blocks
// separated by blank lines.
func FormatDocuments(results []core.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("source: %s\n content: %s", r.Source, r.Content))
	}

	return strings.Join(blocks, "\n\n")
}
