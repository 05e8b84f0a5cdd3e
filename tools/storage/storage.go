// Package storage holds the pantry lot stores and the document backends they persist to.
// Every LotStore enforces decrement-if-sufficient per lot, so concurrent recipe completions
// can never read and write a stale quantity.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"pantrycook/pantry"
)

// ErrLotNotFound is returned for unknown lot IDs.
var ErrLotNotFound = pantry.ErrLotNotFound

// LotStore is the pantry collaborator of the consumption planner.
type LotStore interface {
	List(ctx context.Context) ([]pantry.Lot, error)
	Get(ctx context.Context, id string) (pantry.Lot, error)
	// Decrement atomically removes amount from the lot and returns its new quantity. If the
	// lot holds less than amount it changes nothing and returns a *pantry.StockError.
	Decrement(ctx context.Context, id string, amount float64) (float64, error)
	// Add stores a new lot, assigning an ID when it has none.
	Add(ctx context.Context, lot pantry.Lot) (pantry.Lot, error)
}

// PantryState is a pantry document that can be read and written back.
type PantryState interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type RecipeState interface {
	Load(ctx context.Context) ([]byte, error)
}

// stockTolerance absorbs float drift when a caller asks for exactly what is left.
const stockTolerance = 1e-9

func validateLot(lot pantry.Lot) error {
	if lot.ProductName == "" {
		return errors.New("lot name is required")
	}
	if !pantry.Finite(lot.Quantity) || lot.Quantity < 0 {
		return fmt.Errorf("lot %q has invalid quantity %v", lot.ProductName, lot.Quantity)
	}
	return nil
}

func validateAmount(amount float64) error {
	if !pantry.Finite(amount) || amount < 0 {
		return fmt.Errorf("cannot decrement by %v", amount)
	}
	return nil
}

// LoadRecipes decodes a recipe document: either a JSON array of recipes or an object with
// a "recipes" array.
func LoadRecipes(ctx context.Context, state RecipeState) ([]pantry.Recipe, error) {
	data, err := state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}
	data = bytes.TrimSpace(data)

	var recipes []pantry.Recipe
	if bytes.HasPrefix(data, []byte("[")) {
		err = json.Unmarshal(data, &recipes)
	} else {
		var doc struct {
			Recipes []pantry.Recipe `json:"recipes"`
		}
		err = json.Unmarshal(data, &doc)
		recipes = doc.Recipes
	}
	if err != nil {
		return nil, fmt.Errorf("parse recipes: %w", err)
	}
	if recipes == nil {
		recipes = []pantry.Recipe{}
	}
	return recipes, nil
}

// TestPantryState is a simple in-memory implementation for testing
type TestPantryState struct {
	mu    sync.Mutex
	data  []byte
	err   error
	saves int
}

func NewTestPantryState(data []byte) *TestPantryState {
	return &TestPantryState{data: data}
}

func NewTestPantryStateWithError() *TestPantryState {
	return &TestPantryState{err: errors.New("not found")}
}

func (t *TestPantryState) Load(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

func (t *TestPantryState) Save(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.data = append([]byte(nil), data...)
	t.saves++
	return nil
}

// Saves reports how many times the document was written.
func (t *TestPantryState) Saves() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saves
}

// TestRecipeState is a simple in-memory implementation for testing
type TestRecipeState struct {
	data []byte
	err  error
}

func NewTestRecipeState(data []byte) *TestRecipeState {
	return &TestRecipeState{data: data}
}

func NewTestRecipeStateWithError() *TestRecipeState {
	return &TestRecipeState{err: errors.New("not found")}
}

func (t *TestRecipeState) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}
