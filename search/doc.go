// Package search implements the web search collaborator used by research
// sub-agents: a Tavily HTTP client, deduplication of results by URL,
// optional per-page summarization and rendering of the tool observation.
package search
