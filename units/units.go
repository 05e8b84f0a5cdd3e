// Package units holds the canonical measurement vocabulary used to reconcile recipes against
// pantry lots, and the deterministic conversions between those units.
package units

import (
	"sort"
	"strings"
)

// Category groups units that measure the same physical quantity.
type Category string

const (
	Weight Category = "weight"
	Volume Category = "volume"
	Count  Category = "count"

	// Unknown is the category of a passthrough token that matched no alias.
	Unknown Category = ""
)

// Unit is a canonical unit token. Name is the canonical key, Label the short display form.
type Unit struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Category Category `json:"category,omitempty"`
}

// Known reports whether the unit belongs to the canonical vocabulary.
func (u Unit) Known() bool { return u.Category != Unknown }

// IsZero reports whether u is the empty unit (no unit given at all).
func (u Unit) IsZero() bool { return u.Name == "" }

func (u Unit) String() string { return u.Name }

// Canonical units.
var (
	Milligram = Unit{Name: "milligram", Label: "mg", Category: Weight}
	Gram      = Unit{Name: "gram", Label: "g", Category: Weight}
	Kilogram  = Unit{Name: "kilogram", Label: "kg", Category: Weight}
	Ounce     = Unit{Name: "ounce", Label: "oz", Category: Weight}
	Pound     = Unit{Name: "pound", Label: "lb", Category: Weight}

	Milliliter = Unit{Name: "milliliter", Label: "ml", Category: Volume}
	Centiliter = Unit{Name: "centiliter", Label: "cl", Category: Volume}
	Deciliter  = Unit{Name: "deciliter", Label: "dl", Category: Volume}
	Liter      = Unit{Name: "liter", Label: "l", Category: Volume}
	Teaspoon   = Unit{Name: "teaspoon", Label: "tsp", Category: Volume}
	Tablespoon = Unit{Name: "tablespoon", Label: "tbsp", Category: Volume}
	FluidOunce = Unit{Name: "fluid_ounce", Label: "fl oz", Category: Volume}
	Cup        = Unit{Name: "cup", Label: "cup", Category: Volume}
	Pint       = Unit{Name: "pint", Label: "pt", Category: Volume}
	Quart      = Unit{Name: "quart", Label: "qt", Category: Volume}
	Gallon     = Unit{Name: "gallon", Label: "gal", Category: Volume}

	Each      = Unit{Name: "each", Label: "ea", Category: Count}
	Pair      = Unit{Name: "pair", Label: "pair", Category: Count}
	HalfDozen = Unit{Name: "half_dozen", Label: "half dozen", Category: Count}
	Dozen     = Unit{Name: "dozen", Label: "doz", Category: Count}
	Score     = Unit{Name: "score", Label: "score", Category: Count}
	Gross     = Unit{Name: "gross", Label: "gross", Category: Count}
	Carton    = Unit{Name: "carton", Label: "carton", Category: Count}
	Can       = Unit{Name: "can", Label: "can", Category: Count}
	Bottle    = Unit{Name: "bottle", Label: "bottle", Category: Count}
	Jar       = Unit{Name: "jar", Label: "jar", Category: Count}
	Package   = Unit{Name: "package", Label: "pkg", Category: Count}
	Bag       = Unit{Name: "bag", Label: "bag", Category: Count}
	Box       = Unit{Name: "box", Label: "box", Category: Count}
	Slice     = Unit{Name: "slice", Label: "slice", Category: Count}
	Loaf      = Unit{Name: "loaf", Label: "loaf", Category: Count}
	Clove     = Unit{Name: "clove", Label: "clove", Category: Count}
	Bunch     = Unit{Name: "bunch", Label: "bunch", Category: Count}
	Head      = Unit{Name: "head", Label: "head", Category: Count}
	Stick     = Unit{Name: "stick", Label: "stick", Category: Count}
	Bar       = Unit{Name: "bar", Label: "bar", Category: Count}
	Sprig     = Unit{Name: "sprig", Label: "sprig", Category: Count}
)

var canonical = []Unit{
	Milligram, Gram, Kilogram, Ounce, Pound,
	Milliliter, Centiliter, Deciliter, Liter, Teaspoon, Tablespoon, FluidOunce, Cup, Pint, Quart, Gallon,
	Each, Pair, HalfDozen, Dozen, Score, Gross, Carton, Can, Bottle, Jar, Package, Bag, Box,
	Slice, Loaf, Clove, Bunch, Head, Stick, Bar, Sprig,
}

// aliases maps free-text spellings (lower case, single-spaced) onto canonical names.
// Canonical names and labels are added in init so normalization is idempotent.
var aliases = map[string]string{
	"mgs": "milligram", "milligrams": "milligram",
	"gr": "gram", "gm": "gram", "gms": "gram", "grams": "gram", "gramme": "gram", "grammes": "gram",
	"kgs": "kilogram", "kilo": "kilogram", "kilos": "kilogram", "kilograms": "kilogram",
	"ounces": "ounce", "oz.": "ounce",
	"lbs": "pound", "lb.": "pound", "lbs.": "pound", "pounds": "pound", "#": "pound",

	"mls": "milliliter", "milliliters": "milliliter", "millilitre": "milliliter", "millilitres": "milliliter", "cc": "milliliter",
	"centiliters": "centiliter", "centilitre": "centiliter",
	"deciliters": "deciliter", "decilitre": "deciliter",
	"liters": "liter", "litre": "liter", "litres": "liter", "ltr": "liter", "lt": "liter",
	"t": "teaspoon", "tsps": "teaspoon", "tsp.": "teaspoon", "teaspoons": "teaspoon",
	"tbs": "tablespoon", "tbsp.": "tablespoon", "tbsps": "tablespoon", "tablespoons": "tablespoon", "tblsp": "tablespoon",
	"floz": "fluid_ounce", "fl. oz": "fluid_ounce", "fl oz.": "fluid_ounce", "fluid ounce": "fluid_ounce", "fluid ounces": "fluid_ounce", "fl-oz": "fluid_ounce",
	"cups": "cup", "c": "cup",
	"pints": "pint", "pts": "pint",
	"quarts": "quart", "qts": "quart",
	"gallons": "gallon", "gals": "gallon",

	"ea.": "each", "count": "each", "ct": "each", "pc": "each", "pcs": "each", "piece": "each", "pieces": "each",
	"unit": "each", "units": "each", "item": "each", "items": "each",
	"pairs": "pair",
	"half-dozen": "half_dozen", "half dozen": "half_dozen",
	"dozens": "dozen", "dz": "dozen",
	"scores": "score",
	"cartons": "carton",
	"cans": "can", "tin": "can", "tins": "can",
	"bottles": "bottle",
	"jars": "jar",
	"packages": "package", "pack": "package", "packs": "package", "packet": "package", "packets": "package",
	"bags": "bag",
	"boxes": "box",
	"slices": "slice",
	"loaves": "loaf",
	"cloves": "clove",
	"bunches": "bunch",
	"heads": "head",
	"sticks": "stick",
	"bars": "bar",
	"sprigs": "sprig",
}

var byName = map[string]Unit{}

func init() {
	for _, u := range canonical {
		byName[u.Name] = u
		aliases[u.Name] = u.Name
		aliases[strings.ToLower(u.Label)] = u.Name
	}
}

// descriptive lists size words recipes put where a unit belongs ("2 large eggs").
var descriptive = map[string]bool{
	"large": true, "medium": true, "small": true, "jumbo": true, "extra large": true,
	"extra-large": true, "xl": true, "big": true, "fresh": true, "ripe": true, "whole": true,
}

// Normalize maps a free-text unit onto a canonical Unit. It is total: strings that match no
// alias come back as a passthrough token of Unknown category so callers can still compare
// them textually. Normalize(Normalize(x).Name) == Normalize(x).
func Normalize(raw string) Unit {
	// Capital T is the conventional recipe shorthand for tablespoon; lower-case t is teaspoon.
	if strings.TrimSpace(raw) == "T" {
		return Tablespoon
	}
	key := clean(raw)
	if key == "" {
		return Unit{}
	}
	if name, ok := aliases[key]; ok {
		return byName[name]
	}
	return Unit{Name: key, Label: key}
}

// CategoryOf returns the category of u, or false for passthrough tokens.
func CategoryOf(u Unit) (Category, bool) {
	if known, ok := byName[u.Name]; ok {
		return known.Category, true
	}
	return Unknown, false
}

// Lookup returns the canonical unit with the given name.
func Lookup(name string) (Unit, bool) {
	u, ok := byName[name]
	return u, ok
}

// IsDescriptive reports whether raw is a size descriptor rather than a unit.
func IsDescriptive(raw string) bool {
	return descriptive[clean(raw)]
}

// All returns every canonical unit, sorted by category then name.
func All() []Unit {
	out := make([]Unit, len(canonical))
	copy(out, canonical)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// OfCategory returns the canonical units of category c in declaration order.
func OfCategory(c Category) []Unit {
	var out []Unit
	for _, u := range canonical {
		if u.Category == c {
			out = append(out, u)
		}
	}
	return out
}

func clean(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(s), " ")
}
