// Package model defines the provider-agnostic abstractions for interacting
// with language models inside the research pipeline.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool call representation (ToolDefinition, core.ToolCall)
//   - Support schema-constrained (structured) output via Request.Output
//   - Facilitate lightweight scripting for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Ollama) implement the Model interface from this
// package so agents remain decoupled from vendor SDKs. Invoke and
// InvokeStructured drain a generation into a single final Response.
package model
