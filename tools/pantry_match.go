package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrycook/coordinator"
)

type PantryMatch struct{ coord *coordinator.Coordinator }

func NewPantryMatch(c *coordinator.Coordinator) *PantryMatch { return &PantryMatch{coord: c} }

func (t *PantryMatch) Name() string  { return "pantry_match" }
func (t *PantryMatch) Title() string { return "Match Ingredient to Pantry" }
func (t *PantryMatch) Description() string {
	return "Ranks the pantry lots that can supply an ingredient, best match first. Among equal matches smaller lots come first so they are used up."
}

func (t *PantryMatch) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredient": {Type: "string"},
		},
		Required: []string{"ingredient"},
	}
}

func (t *PantryMatch) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"candidates": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"lot": {
							Type: "object",
							Properties: map[string]*jsonschema.Schema{
								"id":   {Type: "string"},
								"name": {Type: "string"},
								"qty":  {Type: "number"},
								"unit": {Type: "string"},
							},
						},
						"score": {Type: "integer"},
					},
					Required: []string{"lot", "score"},
				},
			},
		},
		Required: []string{"candidates"},
	}
}

type pantryMatchRequest struct {
	Ingredient string `json:"ingredient"`
}

func (t *PantryMatch) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, err := decodeInput[pantryMatchRequest](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Ingredient) == "" {
		return nil, errors.New("ingredient is required")
	}
	candidates, err := t.coord.Candidates(ctx, req.Ingredient)
	if err != nil {
		return nil, err
	}
	return toOutput(map[string]any{"candidates": candidates})
}
