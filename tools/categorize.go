package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrycook/categorize"
)

// categorizer is the part of categorize.Categorizer the tools call.
type categorizer interface {
	Categorize(ctx context.Context, item string) categorize.Categorization
	Correct(ctx context.Context, corr categorize.Correction) (categorize.Categorization, error)
	ValidateUnit(ctx context.Context, req categorize.ValidateRequest) categorize.Validation
}

func categoryNames() []any {
	var out []any
	for _, c := range categorize.Categories() {
		out = append(out, string(c))
	}
	return out
}

func unitSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":     {Type: "string"},
			"label":    {Type: "string"},
			"category": {Type: "string"},
		},
	}
}

func categorizationSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"item_name":     {Type: "string"},
			"key":           {Type: "string"},
			"category":      {Type: "string", Enum: categoryNames()},
			"allowed_units": {Type: "array", Items: unitSchema()},
			"default_unit":  unitSchema(),
			"confidence":    {Type: "number"},
			"source":        {Type: "string"},
			"pinned":        {Type: "boolean"},
		},
		Required: []string{"item_name", "category", "allowed_units", "default_unit", "confidence", "source"},
	}
}

type CategorizeItem struct{ categorizer categorizer }

func NewCategorizeItem(c categorizer) *CategorizeItem { return &CategorizeItem{categorizer: c} }

func (t *CategorizeItem) Name() string  { return "categorize_item" }
func (t *CategorizeItem) Title() string { return "Categorize Item" }
func (t *CategorizeItem) Description() string {
	return "Classifies a food item into a category with the units it may be measured in and a confidence score."
}

func (t *CategorizeItem) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"item": {Type: "string"},
		},
		Required: []string{"item"},
	}
}

func (t *CategorizeItem) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"categorization": categorizationSchema(),
		},
		Required: []string{"categorization"},
	}
}

type categorizeRequest struct {
	Item string `json:"item"`
}

func (t *CategorizeItem) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, err := decodeInput[categorizeRequest](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Item) == "" {
		return nil, errors.New("item is required")
	}
	return toOutput(map[string]any{"categorization": t.categorizer.Categorize(ctx, req.Item)})
}

type CorrectCategory struct{ categorizer categorizer }

func NewCorrectCategory(c categorizer) *CorrectCategory { return &CorrectCategory{categorizer: c} }

func (t *CorrectCategory) Name() string  { return "correct_category" }
func (t *CorrectCategory) Title() string { return "Correct Item Category" }
func (t *CorrectCategory) Description() string {
	return "Records the user's category for an item, optionally with its allowed and default units. Corrections are never overridden by automatic classification."
}

func (t *CorrectCategory) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"item":          {Type: "string"},
			"category":      {Type: "string", Enum: categoryNames()},
			"allowed_units": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"default_unit":  {Type: "string"},
		},
		Required: []string{"item", "category"},
	}
}

func (t *CorrectCategory) OutputSchema() *jsonschema.Schema {
	return (&CategorizeItem{}).OutputSchema()
}

func (t *CorrectCategory) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, err := decodeInput[categorize.Correction](input)
	if err != nil {
		return nil, err
	}
	cat, err := t.categorizer.Correct(ctx, req)
	if err != nil {
		return nil, err
	}
	return toOutput(map[string]any{"categorization": cat})
}

type ValidateUnit struct{ categorizer categorizer }

func NewValidateUnit(c categorizer) *ValidateUnit { return &ValidateUnit{categorizer: c} }

func (t *ValidateUnit) Name() string  { return "validate_unit" }
func (t *ValidateUnit) Title() string { return "Validate Unit" }
func (t *ValidateUnit) Description() string {
	return "Checks whether a unit makes sense for an item, returning the allowed units, suggestions and warnings."
}

func (t *ValidateUnit) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"item": {Type: "string"},
			"unit": {Type: "string"},
			"qty":  {Type: "number"},
		},
		Required: []string{"item", "unit"},
	}
}

func (t *ValidateUnit) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"is_valid":      {Type: "boolean"},
			"category":      {Type: "string"},
			"allowed_units": {Type: "array", Items: unitSchema()},
			"default_unit":  unitSchema(),
			"suggestions":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"warnings":      {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"is_valid", "category", "allowed_units"},
	}
}

func (t *ValidateUnit) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	req, err := decodeInput[categorize.ValidateRequest](input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Item) == "" {
		return nil, errors.New("item is required")
	}
	return toOutput(t.categorizer.ValidateUnit(ctx, req))
}
