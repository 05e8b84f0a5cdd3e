// Package pantry defines the records exchanged between the pantry store, recipes and the
// consumption engine.
package pantry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Lot is a single quantity record of one product in the pantry.
type Lot struct {
	ID             string  `json:"id"`
	ProductName    string  `json:"name"`
	Quantity       float64 `json:"qty"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category,omitempty"`
	DaysLeft       int     `json:"days_left,omitempty"`
	PerishableDays int     `json:"perishable_days,omitempty"`
	AddedDay       int     `json:"added_day,omitempty"`
}

// Pantry is the document form of a pantry, as stored in files and S3 objects.
type Pantry struct {
	Lots []Lot `json:"ingredients"`
}

const nonPerishableDays = 9999

// RemainingFreshness returns the days left before the lot spoils at currentDay.
// Lots with an explicit DaysLeft report it unchanged; non-perishables report 9999.
func (l Lot) RemainingFreshness(currentDay int) int {
	if l.DaysLeft > 0 {
		return l.DaysLeft
	}
	if l.PerishableDays == 0 {
		return nonPerishableDays
	}
	return l.PerishableDays - (currentDay - l.AddedDay)
}

// Requirement is the quantity of an ingredient a recipe needs. A nil Quantity means
// "to taste": it never blocks a recipe and is never treated as zero. An empty Unit means
// the recipe gave no unit ("2 eggs").
type Requirement struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"qty"`
	Unit     string   `json:"unit,omitempty"`
	Optional bool     `json:"optional,omitempty"`
}

// Quantity returns a pointer to q, for building requirements inline.
func Quantity(q float64) *float64 { return &q }

// Validate rejects requirements that cannot enter the consumption state machine.
func (r Requirement) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("ingredient name is required")
	}
	if r.Quantity == nil {
		return nil
	}
	if !Finite(*r.Quantity) {
		return fmt.Errorf("ingredient %q has non-finite quantity %v", r.Name, *r.Quantity)
	}
	if *r.Quantity < 0 {
		return fmt.Errorf("ingredient %q has negative quantity %v", r.Name, *r.Quantity)
	}
	return nil
}

// Finite reports whether q is neither NaN nor an infinity.
func Finite(q float64) bool { return !math.IsNaN(q) && !math.IsInf(q, 0) }

// Recipe is a named list of requirements for a base number of servings.
type Recipe struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	MealTypes   []string      `json:"meal_types,omitempty"`
	Servings    int           `json:"servings"`
	Ingredients []Requirement `json:"ingredients"`
}

// Scaled returns the recipe's requirements scaled from its base servings to servings.
// Non-positive servings, or a recipe without base servings, leave quantities unchanged.
func (r Recipe) Scaled(servings int) []Requirement {
	scale := 1.0
	if servings > 0 && r.Servings > 0 {
		scale = float64(servings) / float64(r.Servings)
	}
	out := make([]Requirement, len(r.Ingredients))
	for i, req := range r.Ingredients {
		out[i] = req
		if req.Quantity != nil {
			out[i].Quantity = Quantity(*req.Quantity * scale)
		}
	}
	return out
}

// HasMealType reports whether the recipe is tagged with any of the given meal types.
func (r Recipe) HasMealType(want ...string) bool {
	for _, m := range r.MealTypes {
		for _, w := range want {
			if strings.EqualFold(m, w) {
				return true
			}
		}
	}
	return false
}

// StockError is returned by a lot store when a conditional decrement finds less stock than
// requested because another consumer got there first.
type StockError struct {
	LotID     string
	Requested float64
	Available float64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("lot %s has %.4g available, %.4g requested", e.LotID, e.Available, e.Requested)
}

// ErrInsufficientStock matches any *StockError with errors.Is.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrLotNotFound is returned by lot stores for unknown lot IDs.
var ErrLotNotFound = errors.New("lot not found")

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }
