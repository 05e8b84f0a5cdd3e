// Package match ranks pantry lots against a recipe ingredient name.
package match

import (
	"slices"
	"strings"
	"unicode"

	"pantrycook/pantry"
)

// Scores by match tier.
const (
	ScoreExact        = 100
	ScorePlural       = 90
	ScoreIngredientIn = 80
	ScoreLotIn        = 70
	ScoreSubstitute   = 60
)

// Candidate is a lot that can supply an ingredient, with its match score.
type Candidate struct {
	Lot   pantry.Lot `json:"lot"`
	Score int        `json:"score"`
}

// DefaultSubstitutions are interchangeable ingredients.
var DefaultSubstitutions = [][]string{
	{"butter", "margarine"},
	{"scallion", "green onion", "spring onion"},
	{"cilantro", "coriander leaves", "fresh coriander"},
	{"heavy cream", "whipping cream", "double cream"},
	{"chickpeas", "garbanzo beans"},
	{"powdered sugar", "confectioners sugar", "icing sugar"},
	{"stock", "broth"},
	{"zucchini", "courgette"},
	{"eggplant", "aubergine"},
	{"bell pepper", "capsicum"},
}

// Matcher scores lot names against ingredient names. The zero value has no substitutions.
type Matcher struct {
	groups [][][]string
}

// New returns a Matcher over the given substitution groups.
func New(groups [][]string) *Matcher {
	m := &Matcher{}
	for _, g := range groups {
		var tokenized [][]string
		for _, name := range g {
			tokenized = append(tokenized, singularTokens(name))
		}
		m.groups = append(m.groups, tokenized)
	}
	return m
}

var defaultMatcher = New(DefaultSubstitutions)

// Match ranks lots with the default substitution groups.
func Match(ingredient string, lots []pantry.Lot) []Candidate {
	return defaultMatcher.Match(ingredient, lots)
}

// Match returns the lots that can supply ingredient, best first. Empty lots never match.
// Equal scores prefer the lot with less on hand so small remainders get used up, then
// the lot ID.
func (m *Matcher) Match(ingredient string, lots []pantry.Lot) []Candidate {
	var out []Candidate
	for _, lot := range lots {
		if lot.Quantity <= 0 {
			continue
		}
		if s := m.Score(ingredient, lot.ProductName); s > 0 {
			out = append(out, Candidate{Lot: lot, Score: s})
		}
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		if a.Lot.Quantity != b.Lot.Quantity {
			if a.Lot.Quantity < b.Lot.Quantity {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Lot.ID, b.Lot.ID)
	})
	return out
}

// Score returns the match score of a lot name for an ingredient name, or 0.
func (m *Matcher) Score(ingredient, lotName string) int {
	ing, lot := tokens(ingredient), tokens(lotName)
	if len(ing) == 0 || len(lot) == 0 {
		return 0
	}
	if slices.Equal(ing, lot) {
		return ScoreExact
	}

	singIng, singLot := singularize(ing), singularize(lot)
	switch {
	case slices.Equal(singIng, singLot):
		return ScorePlural
	case containsSeq(singLot, singIng):
		return ScoreIngredientIn
	case containsSeq(singIng, singLot):
		return ScoreLotIn
	case m.substitutes(singIng, singLot):
		return ScoreSubstitute
	}
	return 0
}

func (m *Matcher) substitutes(ing, lot []string) bool {
	for _, g := range m.groups {
		var ingHit, lotHit bool
		for _, name := range g {
			ingHit = ingHit || containsSeq(ing, name)
			lotHit = lotHit || containsSeq(lot, name)
		}
		if ingHit && lotHit {
			return true
		}
	}
	return false
}

// tokens lower-cases s and splits it into words, dropping punctuation.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func singularTokens(s string) []string { return singularize(tokens(s)) }

func singularize(ts []string) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = Singular(t)
	}
	return out
}

// Singular strips common English plural endings from a single word.
func Singular(w string) string {
	switch {
	case len(w) <= 3:
		return w
	case strings.HasSuffix(w, "ies"):
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "oes"),
		strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "sses"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"):
		return w
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

// containsSeq reports whether needle occurs as a contiguous word sequence in haystack.
func containsSeq(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if slices.Equal(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}
