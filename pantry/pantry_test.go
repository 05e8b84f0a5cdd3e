package pantry

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLot_RemainingFreshness(t *testing.T) {
	tests := []struct {
		name       string
		lot        Lot
		currentDay int
		want       int
	}{
		{"non-perishable", Lot{ProductName: "rice"}, 10, 9999},
		{"expired two days ago", Lot{ProductName: "milk", PerishableDays: 7, AddedDay: 1}, 10, -2},
		{"preset days left wins", Lot{ProductName: "bread", DaysLeft: 3, PerishableDays: 1}, 10, 3},
		{"expires today", Lot{ProductName: "fish", PerishableDays: 3, AddedDay: 2}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lot.RemainingFreshness(tt.currentDay))
		})
	}
}

func TestRequirement_Validate(t *testing.T) {
	assert.NoError(t, Requirement{Name: "salt"}.Validate())
	assert.NoError(t, Requirement{Name: "flour", Quantity: Quantity(0)}.Validate())
	assert.Error(t, Requirement{Name: "  ", Quantity: Quantity(1)}.Validate())
	assert.Error(t, Requirement{Name: "flour", Quantity: Quantity(-1)}.Validate())
	assert.Error(t, Requirement{Name: "flour", Quantity: Quantity(math.NaN())}.Validate())
	assert.Error(t, Requirement{Name: "flour", Quantity: Quantity(math.Inf(1))}.Validate())
	assert.Error(t, Requirement{Name: "flour", Quantity: Quantity(math.Inf(-1))}.Validate())

	overflow := Recipe{Servings: 1, Ingredients: []Requirement{{Name: "rice", Quantity: Quantity(1e308), Unit: "g"}}}
	assert.Error(t, overflow.Scaled(10)[0].Validate(), "scaling past the float range is rejected")
}

func TestRecipe_Scaled(t *testing.T) {
	r := Recipe{
		ID:       "pancakes",
		Servings: 2,
		Ingredients: []Requirement{
			{Name: "flour", Quantity: Quantity(1), Unit: "cup"},
			{Name: "salt"},
		},
	}

	scaled := r.Scaled(4)
	require.Len(t, scaled, 2)
	require.NotNil(t, scaled[0].Quantity)
	assert.Equal(t, 2.0, *scaled[0].Quantity)
	assert.Nil(t, scaled[1].Quantity)

	// the original recipe is untouched
	assert.Equal(t, 1.0, *r.Ingredients[0].Quantity)

	same := r.Scaled(0)
	assert.Equal(t, 1.0, *same[0].Quantity)
}

func TestRecipe_HasMealType(t *testing.T) {
	r := Recipe{MealTypes: []string{"Breakfast", "snack"}}
	assert.True(t, r.HasMealType("breakfast"))
	assert.True(t, r.HasMealType("dinner", "snack"))
	assert.False(t, r.HasMealType("dinner"))
}

func TestStockError(t *testing.T) {
	var err error = &StockError{LotID: "lot-1", Requested: 5, Available: 2}
	wrapped := fmt.Errorf("decrement: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInsufficientStock))

	var se *StockError
	require.True(t, errors.As(wrapped, &se))
	assert.Equal(t, 2.0, se.Available)
	assert.Contains(t, err.Error(), "lot-1")
}
