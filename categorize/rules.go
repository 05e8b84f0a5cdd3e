package categorize

import (
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PatternRule maps item names matching Pattern onto a food category.
type PatternRule struct {
	Pattern  *regexp.Regexp
	Category FoodCategory
}

func rule(expr string, cat FoodCategory) PatternRule {
	return PatternRule{Pattern: regexp.MustCompile(expr), Category: cat}
}

// builtinRules are evaluated in order; the first match wins, so compound names ("peanut
// butter", "cream cheese", "eggplant") sit above the words they contain.
var builtinRules = []PatternRule{
	rule(`\b(peanut|almond|cashew|apple) butter\b`, Condiments),
	rule(`\bcream cheese\b`, Cheese),
	rule(`\begg ?plants?\b`, Produce),
	rule(`\b(bell|red|green|yellow|jalapeno|poblano) peppers?\b`, Produce),
	rule(`\begg (noodles?|pasta)\b`, Grains),
	rule(`\b(coconut|evaporated|condensed) milk\b`, Canned),
	rule(`\b(almond|oat|soy|rice) milk\b`, Beverages),
	rule(`\b(cereal|granola|protein|energy|snack|candy|chocolate|breakfast|fruit|nut|oat) bars?\b`, Snacks),
	rule(`\b(frozen|ice cream|popsicles?)\b`, Frozen),
	rule(`\b(canned|tinned)\b|\b(stock|broth)\b|\b(tomato (paste|sauce)|beans in)\b`, Canned),

	rule(`\beggs?\b`, Eggs),
	rule(`\b(cheddar|mozzarella|parmesan|feta|ricotta|brie|gouda|swiss|cheese|halloumi)\b`, Cheese),
	rule(`\b(milk|cream|yogh?urt|butter|buttermilk|kefir|ghee|creme fraiche|sour cream)\b`, Dairy),
	rule(`\b(chicken|beef|pork|lamb|turkey|bacon|ham|sausages?|steak|mince|ground meat|veal|duck|prosciutto|salami)\b`, Meat),
	rule(`\b(salmon|tuna|cod|shrimps?|prawns?|crab|lobster|fish|tilapia|mussels?|clams?|scallops?|anchov(y|ies)|sardines?)\b`, Seafood),
	rule(`\b(bread|bagels?|muffins?|croissants?|tortillas?|buns?|rolls?|pitas?|baguettes?|brioche|naan)\b`, Bakery),
	rule(`\b(flour|sugar|baking (soda|powder)|yeast|cocoa|cornstarch|vanilla|chocolate chips)\b`, Baking),
	rule(`\b(rice|pasta|spaghetti|penne|macaroni|noodles?|oats?|oatmeal|quinoa|couscous|barley|cereal|granola|lentils?|chickpeas?|beans?)\b`, Grains),
	rule(`\b(salt|pepper(corns?)?|cumin|paprika|cinnamon|oregano|thyme|nutmeg|turmeric|chili powder|garlic powder|onion powder|cardamom|coriander seeds?|spice|seasoning)\b`, Spices),
	rule(`\b(olive oil|oil|shortening|lard)\b`, Oils),
	rule(`\b(ketchup|mustard|mayo(nnaise)?|sauce|vinegar|honey|syrup|jam|jelly|salsa|dressing|relish|soy|hummus|pesto)\b`, Condiments),
	rule(`\b(juice|water|coffee|tea|soda|beer|wine|lemonade|kombucha)\b`, Beverages),
	rule(`\b(chips|crackers?|pretzels?|popcorn|cookies?|nuts|almonds|walnuts|peanuts|raisins)\b`, Snacks),
	rule(`\b(apples?|bananas?|oranges?|lemons?|limes?|berr(y|ies)|grapes?|tomato(es)?|potato(es)?|onions?|garlic|carrots?|celery|lettuce|spinach|kale|peppers?|cucumbers?|zucchini|broccoli|cauliflower|mushrooms?|avocados?|herbs?|parsley|cilantro|basil|scallions?|ginger|cabbage|squash|corn|peas|mango(es)?|pears?|peach(es)?)\b`, Produce),
}

// classifyByPattern returns the first matching category, or Other.
func classifyByPattern(rules []PatternRule, key string) (FoodCategory, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(key) {
			return r.Category, true
		}
	}
	return Other, false
}

type ruleFile struct {
	Rules []struct {
		Pattern  string `yaml:"pattern"`
		Category string `yaml:"category"`
	} `yaml:"rules"`
}

// LoadPatternRules reads additional pattern rules from YAML:
//
//	rules:
//	  - pattern: '\bkimchi\b'
//	    category: condiments
//
// Patterns are matched against the lower-cased item name.
func LoadPatternRules(r io.Reader) ([]PatternRule, error) {
	var f ruleFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode pattern rules: %w", err)
	}

	out := make([]PatternRule, 0, len(f.Rules))
	for i, raw := range f.Rules {
		cat := FoodCategory(raw.Category)
		if !cat.Known() {
			return nil, fmt.Errorf("rule %d: unknown category %q", i, raw.Category)
		}
		re, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid pattern %q: %w", i, raw.Pattern, err)
		}
		out = append(out, PatternRule{Pattern: re, Category: cat})
	}
	return out, nil
}
