package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

type Tool interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Run(ctx context.Context, input map[string]any) (output map[string]any, err error)
}

type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// decodeInput maps a tool's loose JSON input onto its request struct.
func decodeInput[T any](input map[string]any) (T, error) {
	var req T
	b, err := json.Marshal(input)
	if err != nil {
		return req, fmt.Errorf("encode input: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("decode input: %w", err)
	}
	return req, nil
}

// toOutput marshals v -> map[string]any to keep outputs uniform.
func toOutput(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return m, nil
}

func nonNegative() *float64 {
	v := 0.0
	return &v
}
