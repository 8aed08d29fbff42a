package tool

import (
	"github.com/hupe1980/researchmesh/core"
)

// ThinkToolName is the name of the reflection tool.
const ThinkToolName = "think_tool"

type thinkArgs struct {
	Reflection string `json:"reflection" description:"Your detailed reflection on research progress, findings, gaps, and next steps"`
}

// NewThinkTool returns the strategic reflection tool. It has no side effects;
// it only echoes the reflection back so it lands in the transcript.
func NewThinkTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		ThinkToolName,
		"Tool for strategic reflection on research progress and decision-making. "+
			"Use it after each search to analyze results and plan next steps.",
		thinkArgs{},
		func(_ *core.ToolContext, args map[string]any) (string, error) {
			var in thinkArgs
			if err := DecodeArgs(args, &in); err != nil {
				return "", err
			}

			return ThinkResult(in.Reflection), nil
		},
	)
}

// ThinkResult renders the observation for a reflection.
func ThinkResult(reflection string) string {
	return "Reflection recorded: " + reflection
}
