package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrycook/pantry"
	"pantrycook/tools/storage"
)

type RecipeGet struct{ state storage.RecipeState }

func NewRecipeGet(state storage.RecipeState) *RecipeGet { return &RecipeGet{state: state} }

func (t *RecipeGet) Name() string  { return "recipe_get" }
func (t *RecipeGet) Title() string { return "Get Recipes" }
func (t *RecipeGet) Description() string {
	return "Gets recipes filtered by meal types (optional)."
}

func (t *RecipeGet) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"meal_types": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "string"},
			},
		},
	}
}

func (t *RecipeGet) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"recipes": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"id":          {Type: "string"},
						"name":        {Type: "string"},
						"servings":    {Type: "integer"},
						"meal_types":  {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
						"ingredients": {Type: "array", Items: requirementSchema()},
					},
					Required: []string{"id", "ingredients"},
				},
			},
		},
		Required: []string{"recipes"},
	}
}

type recipeGetRequest struct {
	MealTypes []string `json:"meal_types"`
}

func (t *RecipeGet) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, err := decodeInput[recipeGetRequest](input)
	if err != nil {
		return nil, err
	}

	recipes, err := storage.LoadRecipes(ctx, t.state)
	if err != nil {
		return nil, err
	}

	if len(req.MealTypes) > 0 {
		filtered := make([]pantry.Recipe, 0)
		for _, rec := range recipes {
			if rec.HasMealType(req.MealTypes...) {
				filtered = append(filtered, rec)
			}
		}
		recipes = filtered
	}

	return toOutput(map[string]any{"recipes": recipes})
}

// findRecipe returns the recipe with the given id.
func findRecipe(ctx context.Context, state storage.RecipeState, id string) (pantry.Recipe, bool, error) {
	recipes, err := storage.LoadRecipes(ctx, state)
	if err != nil {
		return pantry.Recipe{}, false, err
	}
	for _, r := range recipes {
		if r.ID == id {
			return r, true, nil
		}
	}
	return pantry.Recipe{}, false, nil
}

func requirementSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":     {Type: "string"},
			"qty":      {Type: "number", Minimum: nonNegative()},
			"unit":     {Type: "string"},
			"optional": {Type: "boolean"},
		},
		Required: []string{"name"},
	}
}
