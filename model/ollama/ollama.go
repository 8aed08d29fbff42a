// Package ollama provides a model wrapper for a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/model"
	"github.com/ollama/ollama/api"
)

const defaultBaseURL = "http://localhost:11434"

// Options configures the Ollama model adapter.
type Options struct {
	Model       string
	BaseURL     string
	Temperature float64
	HTTPClient  *http.Client
}

// Model wraps the Ollama chat API behind the generic model.Model interface.
type Model struct {
	client *api.Client
	opts   Options
}

// NewModel creates a new Ollama model.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:      "llama3.1",
		BaseURL:    defaultBaseURL,
		HTTPClient: http.DefaultClient,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	parsedURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}

	return &Model{
		client: api.NewClient(parsedURL, opts.HTTPClient),
		opts:   opts,
	}, nil
}

// Generate sends a non-streaming chat request. When an output schema is set it
// is passed as the response format and the content is returned as Structured.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := false
		chatReq := &api.ChatRequest{
			Model:    m.opts.Model,
			Messages: buildMessages(req.Messages),
			Stream:   &stream,
			Options:  map[string]any{"temperature": m.opts.Temperature},
		}

		if req.Output != nil {
			format, err := json.Marshal(req.Output.Schema)
			if err != nil {
				errCh <- fmt.Errorf("ollama: marshal output schema: %w", err)
				return
			}

			chatReq.Format = format
		} else if len(req.Tools) > 0 {
			chatReq.Tools = buildTools(req.Tools)
		}

		var final api.ChatResponse

		content := ""
		calls := []api.ToolCall{}

		err := m.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			content += resp.Message.Content
			calls = append(calls, resp.Message.ToolCalls...)

			if resp.Done {
				final = resp
			}

			return nil
		})
		if err != nil {
			errCh <- fmt.Errorf("ollama api error: %w", err)
			return
		}

		var toolCalls []core.ToolCall
		for _, call := range calls {
			toolCalls = append(toolCalls, core.ToolCall{
				ID:        core.NewID(),
				Name:      call.Function.Name,
				Arguments: map[string]any(call.Function.Arguments),
			})
		}

		resp := model.Response{
			Message:      core.NewAssistantMessage(content, toolCalls...),
			FinishReason: final.DoneReason,
			Usage: &model.TokenUsage{
				PromptTokens:     final.PromptEvalCount,
				CompletionTokens: final.EvalCount,
				TotalTokens:      final.PromptEvalCount + final.EvalCount,
			},
		}

		if req.Output != nil {
			resp.Structured = json.RawMessage(content)
		}

		out <- resp
	}()

	return out, errCh
}

func buildMessages(msgs []core.Message) []api.Message {
	out := make([]api.Message, 0, len(msgs))

	for _, msg := range msgs {
		am := api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		for _, tc := range msg.ToolCalls {
			am.ToolCalls = append(am.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		out = append(out, am)
	}

	return out
}

func buildTools(tools []model.ToolDefinition) []api.Tool {
	out := make([]api.Tool, 0, len(tools))

	for _, tool := range tools {
		out = append(out, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  buildParameters(tool.Function.Parameters),
			},
		})
	}

	return out
}

func buildParameters(schema map[string]any) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       "object",
		Properties: make(map[string]api.ToolProperty),
	}

	if t, ok := schema["type"].(string); ok {
		params.Type = t
	}

	switch req := schema["required"].(type) {
	case []string:
		params.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				params.Required = append(params.Required, s)
			}
		}
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		for name, prop := range props {
			params.Properties[name] = buildProperty(prop)
		}
	}

	return params
}

func buildProperty(v any) api.ToolProperty {
	prop := api.ToolProperty{}

	m, ok := v.(map[string]any)
	if !ok {
		return prop
	}

	if t, ok := m["type"].(string); ok {
		prop.Type = api.PropertyType{t}
	}

	if desc, ok := m["description"].(string); ok {
		prop.Description = desc
	}

	if enum, ok := m["enum"].([]any); ok {
		prop.Enum = enum
	}

	if items, ok := m["items"]; ok {
		prop.Items = items
	}

	return prop
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:                     m.opts.Model,
		Provider:                 "ollama",
		SupportsTools:            true,
		SupportsStructuredOutput: true,
	}
}
