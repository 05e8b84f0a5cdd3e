package categorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pantrycook/units"
)

// DefaultCacheTTL is how long automated categorizations are trusted before a fresh lookup.
const DefaultCacheTTL = 24 * time.Hour

// Categorizer classifies item names. It is safe for concurrent use; concurrent lookups of
// the same item may both reach the sources, and the cache keeps the stronger result.
type Categorizer struct {
	rules   []PatternRule
	special []SpecialRule
	sources []Source
	cache   Cache
}

type Option func(*Categorizer)

// WithPatternRules adds rules evaluated before the built-in patterns.
func WithPatternRules(rules ...PatternRule) Option {
	return func(c *Categorizer) {
		c.rules = append(slices.Clone(rules), c.rules...)
	}
}

// WithSpecialRules adds special-case rules alongside the built-in ones.
func WithSpecialRules(rules ...SpecialRule) Option {
	return func(c *Categorizer) {
		c.special = append(c.special, rules...)
	}
}

// WithSources sets the external category sources consulted on cache misses.
func WithSources(sources ...Source) Option {
	return func(c *Categorizer) {
		c.sources = append(c.sources, sources...)
	}
}

// WithCache replaces the default in-memory cache.
func WithCache(cache Cache) Option {
	return func(c *Categorizer) {
		c.cache = cache
	}
}

func New(opts ...Option) *Categorizer {
	c := &Categorizer{
		rules:   slices.Clone(builtinRules),
		special: slices.Clone(builtinSpecialRules),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewMemoryCache(DefaultCacheTTL)
	}
	c.special = sortRules(c.special)
	return c
}

// Categorize returns the categorization of item, from the cache when present.
// Cache and source failures degrade to the pattern layer; Categorize never fails.
func (c *Categorizer) Categorize(ctx context.Context, item string) Categorization {
	key := Key(item)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("CATEGORIZER: cache read failed", "item", key, "error", err)
	}
	if ok {
		return cached
	}

	result := c.classify(ctx, item)

	stored, err := c.cache.Upsert(ctx, result)
	if err != nil {
		slog.Warn("CATEGORIZER: cache write failed", "item", key, "error", err)
		return result
	}
	return stored
}

func (c *Categorizer) classify(ctx context.Context, item string) Categorization {
	key := Key(item)

	cat, matched := classifyByPattern(c.rules, key)
	best := newCategorization(item, cat)
	best.Source = TierPattern
	best.Confidence = patternConfidence
	if !matched {
		best.Confidence = fallbackConfidence
	}

	for _, candidate := range c.consultSources(ctx, item) {
		if candidate.Confidence > best.Confidence {
			best = candidate
		}
	}

	c.applySpecialRules(&best)
	slog.Debug("CATEGORIZER: classified item",
		"item", key,
		"category", best.Category,
		"confidence", best.Confidence,
		"source", best.Source)
	return best
}

// consultSources queries every source concurrently and folds agreeing findings together.
// A category reported by several sources is corroborated: its confidence is boosted above
// any single source.
func (c *Categorizer) consultSources(ctx context.Context, item string) []Categorization {
	if len(c.sources) == 0 {
		return nil
	}

	findings := make([]*Finding, len(c.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range c.sources {
		g.Go(func() error {
			f, err := src.Lookup(gctx, item)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					slog.Warn("CATEGORIZER: source lookup failed", "source", src.Name(), "item", item, "error", err)
				}
				return nil
			}
			if !f.Category.Known() {
				slog.Warn("CATEGORIZER: source returned unknown category", "source", src.Name(), "category", f.Category)
				return nil
			}
			findings[i] = &f
			return nil
		})
	}
	_ = g.Wait()

	type tally struct {
		names []string
		top   float64
	}
	byCategory := map[FoodCategory]*tally{}
	for i, f := range findings {
		if f == nil {
			continue
		}
		t, ok := byCategory[f.Category]
		if !ok {
			t = &tally{}
			byCategory[f.Category] = t
		}
		t.names = append(t.names, c.sources[i].Name())
		t.top = math.Max(t.top, f.Confidence)
	}

	var out []Categorization
	for cat, t := range byCategory {
		r := newCategorization(item, cat)
		r.SourceNames = t.names
		sort.Strings(r.SourceNames)
		if len(t.names) > 1 {
			r.Source = TierCorroborated
			r.Confidence = math.Min(maxCorroboratedConf, t.top+corroborationIncrement*float64(len(t.names)-1))
		} else {
			r.Source = TierSource
			r.Confidence = math.Min(maxSingleSourceConf, t.top)
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Categorization) int { return strings.Compare(string(a.Category), string(b.Category)) })
	return out
}

func (c *Categorizer) applySpecialRules(cat *Categorization) {
	for _, r := range c.special {
		if r.Matches(cat.Key) {
			r.apply(cat)
			cat.Rules = append(cat.Rules, r.RuleName())
		}
	}
}

// Correction is user feedback about an item's category. AllowedUnits and DefaultUnit are
// optional and default to the category's profile.
type Correction struct {
	Item         string   `json:"item"`
	Category     string   `json:"category"`
	AllowedUnits []string `json:"allowed_units,omitempty"`
	DefaultUnit  string   `json:"default_unit,omitempty"`
}

// Correct records a user categorization. It is pinned at UserCorrectionConf and is never
// replaced by automated results.
func (c *Categorizer) Correct(ctx context.Context, corr Correction) (Categorization, error) {
	if strings.TrimSpace(corr.Item) == "" {
		return Categorization{}, errors.New("item is required")
	}
	cat := FoodCategory(strings.ToLower(strings.TrimSpace(corr.Category)))
	if !cat.Known() {
		return Categorization{}, fmt.Errorf("unknown category %q", corr.Category)
	}

	result := newCategorization(corr.Item, cat)
	if len(corr.AllowedUnits) > 0 {
		result.AllowedUnits = nil
		for _, raw := range corr.AllowedUnits {
			u := units.Normalize(raw)
			if !u.Known() {
				return Categorization{}, fmt.Errorf("unknown unit %q", raw)
			}
			if !result.Allows(u) {
				result.AllowedUnits = append(result.AllowedUnits, u)
			}
		}
		result.DefaultUnit = result.AllowedUnits[0]
	}
	if corr.DefaultUnit != "" {
		u := units.Normalize(corr.DefaultUnit)
		if !u.Known() {
			return Categorization{}, fmt.Errorf("unknown unit %q", corr.DefaultUnit)
		}
		if !result.Allows(u) {
			result.AllowedUnits = append(result.AllowedUnits, u)
		}
		result.DefaultUnit = u
	}
	result.Confidence = UserCorrectionConf
	result.Source = TierUser
	result.Pinned = true

	stored, err := c.cache.Upsert(ctx, result)
	if err != nil {
		return Categorization{}, fmt.Errorf("failed to store correction for %q: %w", corr.Item, err)
	}
	slog.Info("CATEGORIZER: user correction recorded", "item", result.Key, "category", cat)
	return stored, nil
}

// ValidateRequest asks whether Unit is a sensible measure for Item.
type ValidateRequest struct {
	Item     string   `json:"item"`
	Unit     string   `json:"unit"`
	Quantity *float64 `json:"qty,omitempty"`
}

// Validation is the verdict on a ValidateRequest.
type Validation struct {
	IsValid      bool         `json:"is_valid"`
	Category     FoodCategory `json:"category"`
	AllowedUnits []units.Unit `json:"allowed_units"`
	DefaultUnit  units.Unit   `json:"default_unit"`
	Suggestions  []string     `json:"suggestions,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// ValidateUnit checks a unit against the item's categorization. Special rules are checked
// first: a forbidding or whitelisting rule decides the verdict, preferred-unit rules only warn.
func (c *Categorizer) ValidateUnit(ctx context.Context, req ValidateRequest) Validation {
	cat := c.Categorize(ctx, req.Item)
	u := units.Normalize(req.Unit)
	item := strings.TrimSpace(req.Item)

	v := Validation{
		IsValid:      true,
		Category:     cat.Category,
		AllowedUnits: cat.AllowedUnits,
		DefaultUnit:  cat.DefaultUnit,
	}

	if q := req.Quantity; q != nil && (*q < 0 || math.IsNaN(*q) || math.IsInf(*q, 0)) {
		v.IsValid = false
		v.Warnings = append(v.Warnings, fmt.Sprintf("quantity %v must be a non-negative number", *q))
	}

	switch {
	case u.IsZero() || units.IsDescriptive(req.Unit):
		if !cat.Countable() {
			v.IsValid = false
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s needs a unit", item))
		}
		v.Suggestions = suggest(cat)
		return v
	case !u.Known():
		v.IsValid = false
		v.Warnings = append(v.Warnings, fmt.Sprintf("unrecognized unit %q", req.Unit))
		v.Suggestions = suggest(cat)
		return v
	}

	decided := false
	for _, r := range c.special {
		if !r.Matches(cat.Key) {
			continue
		}
		verdict := r.check(item, u)
		if verdict.warning != "" {
			v.Warnings = append(v.Warnings, verdict.warning)
		}
		if verdict.invalid {
			v.IsValid = false
			decided = true
			break
		}
		if _, whitelist := r.(AllowedUnits); whitelist {
			decided = true
			break
		}
	}

	if !decided && !cat.Allows(u) {
		v.IsValid = false
		v.Warnings = append(v.Warnings, fmt.Sprintf("%s is not usually measured in %s", item, u.Name))
	}
	if !v.IsValid {
		v.Suggestions = suggest(cat)
	}
	return v
}

// suggest lists the default unit first followed by the other allowed units.
func suggest(cat Categorization) []string {
	out := []string{cat.DefaultUnit.Name}
	for _, u := range cat.AllowedUnits {
		if u != cat.DefaultUnit {
			out = append(out, u.Name)
		}
	}
	return out
}
