package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/researchmesh/internal/util"
)

var (
	// ErrNoStructuredOutput is returned when a structured call yields an
	// empty or malformed result.
	ErrNoStructuredOutput = errors.New("model returned no structured output")
	// ErrNoResponse is returned when a generation finishes without a final response.
	ErrNoResponse = errors.New("model returned no response")
)

// Invoke drains a generation and returns the final (non-partial) response.
func Invoke(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final Response
		found bool
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if !r.Partial {
				final = r
				found = true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				return Response{}, err
			}
		}
	}

	if !found {
		return Response{}, ErrNoResponse
	}

	return final, nil
}

// SchemaFor derives an OutputSchema from the exported fields of T.
func SchemaFor[T any](name, description string) OutputSchema {
	var zero T

	return OutputSchema{
		Name:        name,
		Description: description,
		Schema:      util.CreateSchema(zero),
	}
}

// InvokeStructured performs a schema-constrained call and decodes the result
// into T. An absent, empty or undecodable result yields ErrNoStructuredOutput.
func InvokeStructured[T any](ctx context.Context, m Model, req Request, schema OutputSchema) (T, error) {
	var out T

	req.Output = &schema
	req.Tools = nil

	resp, err := Invoke(ctx, m, req)
	if err != nil {
		return out, err
	}

	raw := bytes.TrimSpace(resp.Structured)
	if len(raw) == 0 {
		raw = bytes.TrimSpace([]byte(resp.Message.Content))
	}

	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, fmt.Errorf("%s: %w", schema.Name, ErrNoStructuredOutput)
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s: %w: %v", schema.Name, ErrNoStructuredOutput, err)
	}

	return out, nil
}
