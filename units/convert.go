package units

// toBase holds the factor from a weight or volume unit to its category's base unit
// (gram for Weight, milliliter for Volume).
var toBase = map[string]float64{
	"milligram": 0.001,
	"gram":      1,
	"kilogram":  1000,
	"ounce":     28.3495,
	"pound":     453.592,

	"milliliter":  1,
	"centiliter":  10,
	"deciliter":   100,
	"liter":       1000,
	"teaspoon":    4.92892,
	"tablespoon":  14.7868,
	"fluid_ounce": 29.5735,
	"cup":         236.588,
	"pint":        473.176,
	"quart":       946.353,
	"gallon":      3785.41,
}

// countMultipliers is the closed table of count units that are fungible with each other,
// expressed in "each". Any other count unit (can, slice, carton, ...) converts only to itself.
var countMultipliers = map[string]float64{
	"each":       1,
	"pair":       2,
	"half_dozen": 6,
	"dozen":      12,
	"score":      20,
	"gross":      144,
}

// BaseUnit returns the canonical base unit of a measurable category.
func BaseUnit(c Category) (Unit, bool) {
	switch c {
	case Weight:
		return Gram, true
	case Volume:
		return Milliliter, true
	case Count:
		return Each, true
	}
	return Unit{}, false
}

// Factor returns the multiplier that takes one u into its category's base unit.
func Factor(u Unit) (float64, bool) {
	switch u.Category {
	case Weight, Volume:
		f, ok := toBase[u.Name]
		return f, ok
	case Count:
		f, ok := countMultipliers[u.Name]
		return f, ok
	}
	return 0, false
}

// Convert converts q from one unit to another. It never guesses: units of different or unknown
// categories, and count units outside the multiplier table, report false so callers can
// branch into a fallback path.
func Convert(q float64, from, to Unit) (float64, bool) {
	from, to = Normalize(from.Name), Normalize(to.Name)

	fc, ok := CategoryOf(from)
	if !ok {
		return 0, false
	}
	tc, ok := CategoryOf(to)
	if !ok || fc != tc {
		return 0, false
	}
	if from == to {
		return q, true
	}

	ff, ok := Factor(from)
	if !ok {
		return 0, false
	}
	tf, ok := Factor(to)
	if !ok {
		return 0, false
	}
	return q * ff / tf, true
}

// ConvertRaw normalizes two free-text units and converts q between them.
func ConvertRaw(q float64, from, to string) (float64, bool) {
	return Convert(q, Normalize(from), Normalize(to))
}

// Convertible reports whether Convert would succeed between the two units.
func Convertible(from, to Unit) bool {
	_, ok := Convert(1, from, to)
	return ok
}
