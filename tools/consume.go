package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrycook/coordinator"
	"pantrycook/pantry"
	"pantrycook/tools/storage"
)

func resultSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredient_name":    {Type: "string"},
			"requested_quantity": {Type: "number"},
			"requested_unit":     {Type: "string"},
			"consumed_items": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"lot_id":                {Type: "string"},
						"product_name":          {Type: "string"},
						"quantity_used":         {Type: "number", Minimum: nonNegative()},
						"unit_used":             {Type: "string"},
						"conversion_provenance": {Type: "string", Enum: []any{"deterministic", "reference", "estimated"}},
						"confidence":            {Type: "number"},
						"remaining_quantity":    {Type: "number", Minimum: nonNegative()},
					},
					Required: []string{"lot_id", "quantity_used", "unit_used", "conversion_provenance"},
				},
			},
			"insufficient":       {Type: "boolean"},
			"missing":            {Type: "boolean"},
			"status":             {Type: "string", Enum: []any{"satisfied", "insufficient", "missing", "unspecified"}},
			"confidence":         {Type: "number"},
			"shortfall_quantity": {Type: "number"},
			"warnings":           {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"ingredient_name", "consumed_items", "status", "warnings"},
	}
}

type ConsumeIngredient struct{ coord *coordinator.Coordinator }

func NewConsumeIngredient(c *coordinator.Coordinator) *ConsumeIngredient {
	return &ConsumeIngredient{coord: c}
}

func (t *ConsumeIngredient) Name() string  { return "consume_ingredient" }
func (t *ConsumeIngredient) Title() string { return "Consume Ingredient" }
func (t *ConsumeIngredient) Description() string {
	return "Draws one ingredient from the best matching pantry lots, converting units as needed. Set dry_run to plan without changing the pantry."
}

func (t *ConsumeIngredient) InputSchema() *jsonschema.Schema {
	s := requirementSchema()
	s.Properties["dry_run"] = &jsonschema.Schema{Type: "boolean"}
	return s
}

func (t *ConsumeIngredient) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"result": resultSchema(),
		},
		Required: []string{"result"},
	}
}

type consumeRequest struct {
	pantry.Requirement
	DryRun bool `json:"dry_run"`
}

func (t *ConsumeIngredient) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, err := decodeInput[consumeRequest](input)
	if err != nil {
		return nil, err
	}
	res, err := t.coord.ConsumeIngredient(ctx, req.Requirement, req.DryRun)
	if err != nil {
		return nil, err
	}
	return toOutput(map[string]any{"result": res})
}

func reportSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"recipe_id":          {Type: "string"},
			"recipe_name":        {Type: "string"},
			"servings":           {Type: "integer"},
			"dry_run":            {Type: "boolean"},
			"cookable":           {Type: "boolean"},
			"results":            {Type: "array", Items: resultSchema()},
			"shortages":          {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"optional_shortages": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"estimated":          {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"confidence":         {Type: "number"},
		},
		Required: []string{"recipe_id", "cookable", "results", "shortages"},
	}
}

type recipeRequest struct {
	RecipeID string `json:"recipe_id"`
	Servings int    `json:"servings"`
	Strict   bool   `json:"strict"`
}

func recipeInputSchema(withStrict bool) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"recipe_id": {Type: "string"},
			"servings":  {Type: "integer"},
		},
		Required: []string{"recipe_id"},
	}
	if withStrict {
		s.Properties["strict"] = &jsonschema.Schema{Type: "boolean"}
	}
	return s
}

type recipeTool struct {
	coord   *coordinator.Coordinator
	recipes storage.RecipeState
}

func (t recipeTool) load(ctx context.Context, input map[string]any) (recipeRequest, pantry.Recipe, error) {
	req, err := decodeInput[recipeRequest](input)
	if err != nil {
		return req, pantry.Recipe{}, err
	}
	recipe, ok, err := findRecipe(ctx, t.recipes, req.RecipeID)
	if err != nil {
		return req, pantry.Recipe{}, err
	}
	if !ok {
		return req, pantry.Recipe{}, fmt.Errorf("recipe %q not found", req.RecipeID)
	}
	if req.Servings <= 0 {
		req.Servings = recipe.Servings
	}
	return req, recipe, nil
}

type RecipeCheck struct{ recipeTool }

func NewRecipeCheck(c *coordinator.Coordinator, recipes storage.RecipeState) *RecipeCheck {
	return &RecipeCheck{recipeTool{coord: c, recipes: recipes}}
}

func (t *RecipeCheck) Name() string  { return "recipe_check" }
func (t *RecipeCheck) Title() string { return "Check Recipe" }
func (t *RecipeCheck) Description() string {
	return "Reports whether a recipe can be cooked from the pantry for a number of servings, without changing the pantry."
}
func (t *RecipeCheck) InputSchema() *jsonschema.Schema  { return recipeInputSchema(false) }
func (t *RecipeCheck) OutputSchema() *jsonschema.Schema { return reportSchema() }

func (t *RecipeCheck) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, recipe, err := t.load(ctx, input)
	if err != nil {
		return nil, err
	}
	report, err := t.coord.Check(ctx, recipe, req.Servings)
	if err != nil {
		return nil, err
	}
	return toOutput(report)
}

type RecipeComplete struct{ recipeTool }

func NewRecipeComplete(c *coordinator.Coordinator, recipes storage.RecipeState) *RecipeComplete {
	return &RecipeComplete{recipeTool{coord: c, recipes: recipes}}
}

func (t *RecipeComplete) Name() string  { return "recipe_complete" }
func (t *RecipeComplete) Title() string { return "Complete Recipe" }
func (t *RecipeComplete) Description() string {
	return "Consumes a cooked recipe's ingredients from the pantry and reports any shortages. With strict set, nothing is consumed unless every required ingredient is available."
}
func (t *RecipeComplete) InputSchema() *jsonschema.Schema  { return recipeInputSchema(true) }
func (t *RecipeComplete) OutputSchema() *jsonschema.Schema { return reportSchema() }

func (t *RecipeComplete) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, recipe, err := t.load(ctx, input)
	if err != nil {
		return nil, err
	}
	report, err := t.coord.Complete(ctx, recipe, req.Servings, req.Strict)
	if err != nil {
		return nil, err
	}
	return toOutput(report)
}

