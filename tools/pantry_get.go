package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrycook/tools/storage"
)

type PantryGet struct{ store storage.LotStore }

func NewPantryGet(store storage.LotStore) *PantryGet { return &PantryGet{store: store} }

func (t *PantryGet) Name() string  { return "pantry_get" }
func (t *PantryGet) Title() string { return "Get Pantry (with freshness)" }
func (t *PantryGet) Description() string {
	return "Returns pantry lots with their quantities plus days_left for perishables at a given current_day."
}

func (t *PantryGet) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"current_day": {
				Type: "integer",
			},
		},
	}
}

func (t *PantryGet) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"pantry": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"ingredients": {
						Type: "array",
						Items: &jsonschema.Schema{
							Type: "object",
							Properties: map[string]*jsonschema.Schema{
								"id":        {Type: "string"},
								"name":      {Type: "string"},
								"qty":       {Type: "number", Minimum: nonNegative()},
								"unit":      {Type: "string"},
								"days_left": {Type: "integer"},
							},
							Required: []string{"id", "name", "qty", "unit", "days_left"},
						},
					},
				},
				Required: []string{"ingredients"},
			},
		},
		Required: []string{"pantry"},
	}
}

type pantryGetRequest struct {
	CurrentDay int `json:"current_day"`
}

type pantryGetLot struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Qty  float64 `json:"qty"`
	Unit string  `json:"unit"`
	Days int     `json:"days_left"`
}

func (t *PantryGet) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, err := decodeInput[pantryGetRequest](input)
	if err != nil {
		return nil, err
	}

	lots, err := t.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pantry: %w", err)
	}

	out := struct {
		Pantry struct {
			Ingredients []pantryGetLot `json:"ingredients"`
		} `json:"pantry"`
	}{}

	// Initialize ingredients slice to prevent nil when empty
	out.Pantry.Ingredients = make([]pantryGetLot, 0, len(lots))

	for _, l := range lots {
		out.Pantry.Ingredients = append(out.Pantry.Ingredients, pantryGetLot{
			ID: l.ID, Name: l.ProductName, Qty: l.Quantity, Unit: l.Unit, Days: l.RemainingFreshness(req.CurrentDay),
		})
	}

	return toOutput(out)
}
