package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"pantrycook/coordinator"
	"pantrycook/tools/storage"
)

// Deps are the collaborators the tools run against.
type Deps struct {
	Store       storage.LotStore
	Recipes     storage.RecipeState
	Categorizer categorizer
	Coordinator *coordinator.Coordinator
}

// Registry maps tool names to implementations
type Registry map[string]Tool

// NewRegistry creates a new tool registry over the given pantry, recipes and engine.
func NewRegistry(deps Deps) (*Registry, error) {
	if deps.Store == nil {
		return nil, errors.New("tools: a lot store is required")
	}
	if deps.Recipes == nil {
		return nil, errors.New("tools: a recipe state is required")
	}
	if deps.Categorizer == nil {
		return nil, errors.New("tools: a categorizer is required")
	}
	if deps.Coordinator == nil {
		return nil, errors.New("tools: a coordinator is required")
	}

	all := []Tool{
		NewPantryGet(deps.Store),
		NewPantryAdd(deps.Store, deps.Categorizer),
		NewPantryMatch(deps.Coordinator),
		NewRecipeGet(deps.Recipes),
		NewCategorizeItem(deps.Categorizer),
		NewCorrectCategory(deps.Categorizer),
		NewValidateUnit(deps.Categorizer),
		NewConsumeIngredient(deps.Coordinator),
		NewRecipeCheck(deps.Coordinator, deps.Recipes),
		NewRecipeComplete(deps.Coordinator, deps.Recipes),
	}

	registry := make(Registry, len(all))
	for _, t := range all {
		registry[t.Name()] = t
	}
	return &registry, nil
}

// GetTools returns all tools in the registry sorted by name
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(*r))
	for _, tool := range *r {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	tool, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return tool, nil
}

// Call runs the named tool with the call's input.
func (r Registry) Call(ctx context.Context, call Call) (map[string]any, error) {
	tool, err := r.GetTool(call.Name)
	if err != nil {
		return nil, err
	}
	input := call.Input
	if input == nil {
		input = map[string]any{}
	}
	slog.Debug("TOOLS: running tool", "tool", call.Name, "tool_use_id", call.ToolUseID)
	out, err := tool.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", call.Name, err)
	}
	return out, nil
}
