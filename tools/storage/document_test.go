package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrycook/pantry"
)

func TestDocumentLotStore(t *testing.T) {
	ctx := context.Background()
	state := NewTestPantryState([]byte(`{"ingredients": [
		{"id": "egg-1", "name": "egg", "qty": 12, "unit": "each"},
		{"name": "milk", "qty": 1, "unit": "l", "days_left": 3}
	]}`))

	store, err := OpenDocumentLotStore(ctx, state)
	require.NoError(t, err)

	lots, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.NotEmpty(t, lots[1].ID, "lots without an id get one")

	require.NoError(t, store.Flush(ctx))
	assert.Equal(t, 0, state.Saves(), "nothing changed yet")

	left, err := store.Decrement(ctx, "egg-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 9.0, left)

	require.NoError(t, store.Flush(ctx))
	assert.Equal(t, 1, state.Saves())

	data, err := state.Load(ctx)
	require.NoError(t, err)
	var doc pantry.Pantry
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Lots, 2)
	assert.Equal(t, 9.0, doc.Lots[0].Quantity)
	assert.Equal(t, 3, doc.Lots[1].DaysLeft)

	require.NoError(t, store.Flush(ctx))
	assert.Equal(t, 1, state.Saves())
}

func TestOpenDocumentLotStore_Errors(t *testing.T) {
	_, err := OpenDocumentLotStore(context.Background(), NewTestPantryStateWithError())
	assert.Error(t, err)

	_, err = OpenDocumentLotStore(context.Background(), NewTestPantryState([]byte(`not json`)))
	assert.ErrorContains(t, err, "failed to parse pantry")
}

func TestLoadRecipes(t *testing.T) {
	state := NewTestRecipeState([]byte(`{"recipes": [
		{"id": "omelet", "name": "Basic Omelet", "servings": 1, "meal_types": ["breakfast"],
		 "ingredients": [{"name": "egg", "qty": 2}, {"name": "salt"}]}
	]}`))

	recipes, err := LoadRecipes(context.Background(), state)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "omelet", recipes[0].ID)
	require.Len(t, recipes[0].Ingredients, 2)
	assert.Equal(t, 2.0, *recipes[0].Ingredients[0].Quantity)
	assert.Nil(t, recipes[0].Ingredients[1].Quantity)

	recipes, err = LoadRecipes(context.Background(), NewTestRecipeState([]byte(` [{"id": "toast", "name": "Toast"}]`)))
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "toast", recipes[0].ID)

	_, err = LoadRecipes(context.Background(), NewTestRecipeStateWithError())
	assert.ErrorContains(t, err, "read recipes")

	_, err = LoadRecipes(context.Background(), NewTestRecipeState([]byte(`invalid json`)))
	assert.ErrorContains(t, err, "parse recipes")
}
