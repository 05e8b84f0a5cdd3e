package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrycook/categorize"
	"pantrycook/pantry"
	"pantrycook/tools/storage"
)

// flusher is implemented by lot stores that persist to a document.
type flusher interface {
	Flush(ctx context.Context) error
}

type PantryAdd struct {
	store       storage.LotStore
	categorizer categorizer
}

func NewPantryAdd(store storage.LotStore, c categorizer) *PantryAdd {
	return &PantryAdd{store: store, categorizer: c}
}

func (t *PantryAdd) Name() string  { return "pantry_add" }
func (t *PantryAdd) Title() string { return "Add Pantry Lot" }
func (t *PantryAdd) Description() string {
	return "Adds a purchased lot to the pantry after checking that its unit suits the item. Rejected units come back with suggestions."
}

func (t *PantryAdd) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":            {Type: "string"},
			"qty":             {Type: "number", Minimum: nonNegative()},
			"unit":            {Type: "string"},
			"perishable_days": {Type: "integer"},
			"added_day":       {Type: "integer"},
		},
		Required: []string{"name", "qty"},
	}
}

func (t *PantryAdd) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"added": {Type: "boolean"},
			"lot": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id":       {Type: "string"},
					"name":     {Type: "string"},
					"qty":      {Type: "number"},
					"unit":     {Type: "string"},
					"category": {Type: "string"},
				},
			},
			"suggestions": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"warnings":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"added"},
	}
}

type pantryAddResponse struct {
	Added       bool        `json:"added"`
	Lot         *pantry.Lot `json:"lot,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
}

func (t *PantryAdd) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	lot, err := decodeInput[pantry.Lot](input)
	if err != nil {
		return nil, err
	}
	lot.ID = ""
	if strings.TrimSpace(lot.ProductName) == "" {
		return nil, fmt.Errorf("name is required")
	}

	v := t.categorizer.ValidateUnit(ctx, categorize.ValidateRequest{
		Item: lot.ProductName, Unit: lot.Unit, Quantity: &lot.Quantity,
	})
	if !v.IsValid {
		return toOutput(pantryAddResponse{Suggestions: v.Suggestions, Warnings: v.Warnings})
	}
	if lot.Unit == "" {
		lot.Unit = v.DefaultUnit.Name
	}
	lot.Category = string(v.Category)

	added, err := t.store.Add(ctx, lot)
	if err != nil {
		return nil, fmt.Errorf("add lot: %w", err)
	}
	if f, ok := t.store.(flusher); ok {
		if err := f.Flush(ctx); err != nil {
			return nil, fmt.Errorf("save pantry: %w", err)
		}
	}
	return toOutput(pantryAddResponse{Added: true, Lot: &added, Warnings: v.Warnings})
}
