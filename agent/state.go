package agent

import (
	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/graph"
)

// State keys shared by the agent graphs.
const (
	KeyMessages           = "messages"
	KeyResearchBrief      = "research_brief"
	KeySupervisorMessages = "supervisor_messages"
	KeyNotes              = "notes"
	KeyRawNotes           = "raw_notes"
	KeyFinalReport        = "final_report"
	KeyResearchIterations = "research_iterations"
	KeyResearcherMessages = "researcher_messages"
	KeyResearchTopic      = "research_topic"
	KeyToolCallIterations = "tool_call_iterations"
	KeyCompressedResearch = "compressed_research"
)

// ResearchStateSchema is the state of the full pipeline.
func ResearchStateSchema() *graph.Schema {
	return graph.NewSchema(
		graph.AppendField[core.Message](KeyMessages),
		graph.OverrideField(KeyResearchBrief),
		graph.AppendField[core.Message](KeySupervisorMessages),
		graph.AppendField[string](KeyNotes),
		graph.AppendField[string](KeyRawNotes),
		graph.OverrideField(KeyFinalReport),
	)
}

// ScopingStateSchema is the state of the scoping gate when run on its own.
func ScopingStateSchema() *graph.Schema {
	return graph.NewSchema(
		graph.AppendField[core.Message](KeyMessages),
		graph.OverrideField(KeyResearchBrief),
		graph.AppendField[core.Message](KeySupervisorMessages),
	)
}

// SupervisorStateSchema is the coordinator's private state. The iteration
// counter starts at zero on every run.
func SupervisorStateSchema() *graph.Schema {
	return graph.NewSchema(
		graph.AppendField[core.Message](KeySupervisorMessages),
		graph.OverrideField(KeyResearchBrief),
		graph.AppendField[string](KeyNotes),
		graph.AppendField[string](KeyRawNotes),
		graph.OverrideField(KeyResearchIterations),
	)
}

// ResearcherStateSchema is the private state of one researcher run.
func ResearcherStateSchema() *graph.Schema {
	return graph.NewSchema(
		graph.AppendField[core.Message](KeyResearcherMessages),
		graph.OverrideField(KeyResearchTopic),
		graph.OverrideField(KeyToolCallIterations),
		graph.OverrideField(KeyCompressedResearch),
		graph.AppendField[string](KeyRawNotes),
	)
}

func lastMessage(msgs []core.Message) (core.Message, bool) {
	if len(msgs) == 0 {
		return core.Message{}, false
	}

	return msgs[len(msgs)-1], true
}
