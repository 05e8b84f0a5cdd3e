package categorize

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"pantrycook/units"
)

// SpecialRule overrides the unit set of items the category profiles get wrong. The variants
// are ForbiddenUnits, AllowedUnits and PreferredUnits; the interface is sealed.
type SpecialRule interface {
	RuleName() string
	Matches(key string) bool
	priority() int
	apply(c *Categorization)
	check(item string, u units.Unit) verdict
}

type verdict struct {
	invalid bool
	warning string
}

// ItemPattern selects items by name. Except excludes names that would otherwise match.
type ItemPattern struct {
	Pattern *regexp.Regexp
	Except  *regexp.Regexp
}

func (m ItemPattern) Matches(key string) bool {
	if m.Pattern == nil || !m.Pattern.MatchString(key) {
		return false
	}
	return m.Except == nil || !m.Except.MatchString(key)
}

// ForbiddenUnits removes whole unit categories or single units from matching items.
type ForbiddenUnits struct {
	ItemPattern
	Name       string
	Categories []units.Category
	Units      []units.Unit
	Reason     string
}

func (r ForbiddenUnits) RuleName() string { return r.Name }
func (r ForbiddenUnits) priority() int    { return 0 }

func (r ForbiddenUnits) forbids(u units.Unit) bool {
	return slices.Contains(r.Categories, u.Category) || slices.Contains(r.Units, u)
}

func (r ForbiddenUnits) apply(c *Categorization) {
	c.AllowedUnits = slices.DeleteFunc(c.AllowedUnits, r.forbids)
	if len(c.AllowedUnits) == 0 {
		c.AllowedUnits = []units.Unit{units.Each}
	}
	if !c.Allows(c.DefaultUnit) {
		c.DefaultUnit = c.AllowedUnits[0]
	}
}

func (r ForbiddenUnits) check(item string, u units.Unit) verdict {
	if !r.forbids(u) {
		return verdict{}
	}
	return verdict{invalid: true, warning: fmt.Sprintf("%s cannot be measured in %s: %s", item, u.Name, r.Reason)}
}

// AllowedUnits replaces the allowed set of matching items with a whitelist.
type AllowedUnits struct {
	ItemPattern
	Name    string
	Units   []units.Unit
	Default units.Unit
}

func (r AllowedUnits) RuleName() string { return r.Name }
func (r AllowedUnits) priority() int    { return 1 }

func (r AllowedUnits) apply(c *Categorization) {
	c.AllowedUnits = slices.Clone(r.Units)
	c.DefaultUnit = r.Default
}

func (r AllowedUnits) check(item string, u units.Unit) verdict {
	if slices.Contains(r.Units, u) {
		return verdict{}
	}
	return verdict{invalid: true, warning: fmt.Sprintf("%s is only measured in %s", item, unitNames(r.Units))}
}

// PreferredUnits flags units that are valid but unusual for matching items.
type PreferredUnits struct {
	ItemPattern
	Name  string
	Units []units.Unit
}

func (r PreferredUnits) RuleName() string { return r.Name }
func (r PreferredUnits) priority() int    { return 2 }

func (r PreferredUnits) apply(c *Categorization) {
	for _, u := range r.Units {
		if !c.Allows(u) {
			c.AllowedUnits = append(c.AllowedUnits, u)
		}
	}
}

func (r PreferredUnits) check(item string, u units.Unit) verdict {
	if slices.Contains(r.Units, u) {
		return verdict{}
	}
	return verdict{warning: fmt.Sprintf("%s is usually measured in %s", item, unitNames(r.Units))}
}

func unitNames(us []units.Unit) string {
	names := make([]string, len(us))
	for i, u := range us {
		names[i] = u.Name
	}
	return strings.Join(names, ", ")
}

func re(expr string) *regexp.Regexp { return regexp.MustCompile(expr) }

var builtinSpecialRules = []SpecialRule{
	ForbiddenUnits{
		ItemPattern: ItemPattern{Pattern: re(`\b(cereal|granola|protein|energy|snack|candy|chocolate|breakfast|fruit|nut|oat) bars?\b`)},
		Name:        "solid_bars",
		Categories:  []units.Category{units.Volume},
		Reason:      "bars are counted or weighed",
	},
	ForbiddenUnits{
		ItemPattern: ItemPattern{
			Pattern: re(`\b(bread|bagels?|muffins?|croissants?|cookies?|tortillas?|buns?|rolls?|pitas?|biscuits?|cakes?|donuts?|baguettes?)\b`),
			Except:  re(`\b(crumbs?|flour|dough|mix|pudding)\b`),
		},
		Name:        "solid_bakery",
		Categories:  []units.Category{units.Volume},
		Reason:      "baked goods are counted or weighed",
	},
	AllowedUnits{
		ItemPattern: ItemPattern{Pattern: re(`^((large|medium|small|jumbo|extra[- ]large|fresh|free[- ]range|organic|brown|white|whole) )*eggs?$`)},
		Name:        "whole_eggs",
		Units:       []units.Unit{units.Each, units.Dozen, units.Carton},
		Default:     units.Each,
	},
	PreferredUnits{
		ItemPattern: ItemPattern{Pattern: re(`^((un)?salted )?butter$`)},
		Name:        "butter",
		Units:       []units.Unit{units.Tablespoon, units.Gram, units.Stick},
	},
	PreferredUnits{
		ItemPattern: ItemPattern{Pattern: re(`\b(salt|cumin|paprika|cinnamon|oregano|nutmeg|turmeric|chili powder|garlic powder|onion powder|black pepper)\b`)},
		Name:        "ground_spices",
		Units:       []units.Unit{units.Teaspoon, units.Tablespoon, units.Gram},
	},
	PreferredUnits{
		ItemPattern: ItemPattern{Pattern: re(`^(fresh )?(parsley|cilantro|basil|dill|mint|rosemary|thyme)$`)},
		Name:        "fresh_herbs",
		Units:       []units.Unit{units.Bunch, units.Sprig, units.Gram},
	},
}

// sortRules orders special rules forbidden, allowed, preferred, keeping declaration order
// within a variant.
func sortRules(rules []SpecialRule) []SpecialRule {
	out := slices.Clone(rules)
	slices.SortStableFunc(out, func(a, b SpecialRule) int { return a.priority() - b.priority() })
	return out
}
