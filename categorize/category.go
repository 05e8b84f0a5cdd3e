// Package categorize classifies free-text food names into food categories and the units
// they can sensibly be measured in.
package categorize

import (
	"slices"
	"strings"
	"time"

	"pantrycook/units"
)

// FoodCategory is a coarse grocery classification that decides which units apply.
type FoodCategory string

const (
	Produce    FoodCategory = "produce"
	Dairy      FoodCategory = "dairy"
	Cheese     FoodCategory = "cheese"
	Eggs       FoodCategory = "eggs"
	Meat       FoodCategory = "meat"
	Seafood    FoodCategory = "seafood"
	Bakery     FoodCategory = "bakery"
	Grains     FoodCategory = "grains"
	Baking     FoodCategory = "baking"
	Spices     FoodCategory = "spices"
	Condiments FoodCategory = "condiments"
	Oils       FoodCategory = "oils"
	Beverages  FoodCategory = "beverages"
	Snacks     FoodCategory = "snacks"
	Frozen     FoodCategory = "frozen"
	Canned     FoodCategory = "canned"
	Other      FoodCategory = "other"
)

// Tier records where a categorization came from. Tiers are ordered by trust.
type Tier string

const (
	TierPattern      Tier = "pattern"
	TierSource       Tier = "single_source"
	TierCorroborated Tier = "corroborated"
	TierUser         Tier = "user"
)

// Confidence levels per tier.
const (
	patternConfidence      = 0.3
	fallbackConfidence     = 0.1
	maxSingleSourceConf    = 0.75
	maxCorroboratedConf    = 0.89
	UserCorrectionConf     = 0.95
	corroborationIncrement = 0.1
)

// Categorization is the result of classifying an item name. DefaultUnit is always one of
// AllowedUnits.
type Categorization struct {
	ItemName     string       `json:"item_name"`
	Key          string       `json:"key"`
	Category     FoodCategory `json:"category"`
	AllowedUnits []units.Unit `json:"allowed_units"`
	DefaultUnit  units.Unit   `json:"default_unit"`
	Confidence   float64      `json:"confidence"`
	Source       Tier         `json:"source"`
	SourceNames  []string     `json:"source_names,omitempty"`
	Rules        []string     `json:"rules,omitempty"`
	Pinned       bool         `json:"pinned"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Allows reports whether u is one of the allowed units.
func (c Categorization) Allows(u units.Unit) bool {
	return slices.Contains(c.AllowedUnits, u)
}

// CountOnly reports whether every allowed unit is a count unit.
func (c Categorization) CountOnly() bool {
	if len(c.AllowedUnits) == 0 {
		return false
	}
	for _, u := range c.AllowedUnits {
		if u.Category != units.Count {
			return false
		}
	}
	return true
}

// Countable reports whether the item's default measure is a count.
func (c Categorization) Countable() bool {
	return c.DefaultUnit.Category == units.Count
}

// AdmitsCategory reports whether any allowed unit is of unit category uc.
func (c Categorization) AdmitsCategory(uc units.Category) bool {
	for _, u := range c.AllowedUnits {
		if u.Category == uc {
			return true
		}
	}
	return false
}

// Key normalizes an item name for cache lookups.
func Key(item string) string {
	return strings.Join(strings.Fields(strings.ToLower(item)), " ")
}

type profile struct {
	allowed []units.Unit
	def     units.Unit
}

var (
	allWeight = units.OfCategory(units.Weight)
	allVolume = units.OfCategory(units.Volume)
	spoons    = []units.Unit{units.Teaspoon, units.Tablespoon, units.Cup}
)

func join(groups ...[]units.Unit) []units.Unit {
	var out []units.Unit
	for _, g := range groups {
		for _, u := range g {
			if !slices.Contains(out, u) {
				out = append(out, u)
			}
		}
	}
	return out
}

var profiles = map[FoodCategory]profile{
	Produce: {
		allowed: join(allWeight, []units.Unit{units.Each, units.Bunch, units.Head, units.Clove, units.Sprig, units.Bag, units.Package, units.Cup}),
		def:     units.Each,
	},
	Dairy: {
		allowed: join(allVolume, allWeight, []units.Unit{units.Carton, units.Bottle, units.Package}),
		def:     units.Milliliter,
	},
	Cheese: {
		allowed: join(allWeight, []units.Unit{units.Cup, units.Slice, units.Package}),
		def:     units.Gram,
	},
	Eggs: {
		allowed: []units.Unit{units.Each, units.HalfDozen, units.Dozen, units.Carton},
		def:     units.Each,
	},
	Meat: {
		allowed: join(allWeight, []units.Unit{units.Each, units.Slice, units.Package}),
		def:     units.Gram,
	},
	Seafood: {
		allowed: join(allWeight, []units.Unit{units.Each, units.Can, units.Package}),
		def:     units.Gram,
	},
	Bakery: {
		allowed: join(allWeight, []units.Unit{units.Each, units.Loaf, units.Slice, units.Package, units.Bag}),
		def:     units.Each,
	},
	Grains: {
		allowed: join(allWeight, spoons, []units.Unit{units.Bag, units.Box, units.Package}),
		def:     units.Gram,
	},
	Baking: {
		allowed: join(allWeight, spoons, []units.Unit{units.Bag, units.Box, units.Package}),
		def:     units.Gram,
	},
	Spices: {
		allowed: join(spoons, []units.Unit{units.Gram, units.Ounce, units.Jar}),
		def:     units.Teaspoon,
	},
	Condiments: {
		allowed: join(allVolume, []units.Unit{units.Gram, units.Ounce, units.Jar, units.Bottle, units.Can}),
		def:     units.Tablespoon,
	},
	Oils: {
		allowed: join(allVolume, []units.Unit{units.Gram, units.Bottle}),
		def:     units.Milliliter,
	},
	Beverages: {
		allowed: join(allVolume, []units.Unit{units.Each, units.Bottle, units.Can, units.Carton}),
		def:     units.Milliliter,
	},
	Snacks: {
		allowed: join(allWeight, []units.Unit{units.Each, units.Bar, units.Bag, units.Box, units.Package}),
		def:     units.Each,
	},
	Frozen: {
		allowed: join(allWeight, []units.Unit{units.Each, units.Bag, units.Box, units.Package}),
		def:     units.Gram,
	},
	Canned: {
		allowed: join(allWeight, []units.Unit{units.Can, units.Jar, units.Cup, units.Milliliter}),
		def:     units.Can,
	},
	Other: {
		allowed: units.All(),
		def:     units.Each,
	},
}

// Known reports whether c is a recognized food category.
func (c FoodCategory) Known() bool {
	_, ok := profiles[c]
	return ok
}

// Categories returns every recognized food category.
func Categories() []FoodCategory {
	out := make([]FoodCategory, 0, len(profiles))
	for c := range profiles {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func newCategorization(item string, cat FoodCategory) Categorization {
	p, ok := profiles[cat]
	if !ok {
		cat, p = Other, profiles[Other]
	}
	return Categorization{
		ItemName:     strings.TrimSpace(item),
		Key:          Key(item),
		Category:     cat,
		AllowedUnits: slices.Clone(p.allowed),
		DefaultUnit:  p.def,
	}
}
