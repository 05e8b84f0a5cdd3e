// Package mock is a deterministic estimator for tests and offline runs.
package mock

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"pantrycook/estimator"
	"pantrycook/units"
)

// Rule converts one FromUnit of an item into Ratio ToUnits. An empty Item matches any item.
type Rule struct {
	Item       string
	FromUnit   string
	ToUnit     string
	Ratio      float64
	Confidence float64
}

// DefaultRules are typical kitchen weights for common count-measured ingredients.
var DefaultRules = []Rule{
	{Item: "egg", FromUnit: "each", ToUnit: "gram", Ratio: 50, Confidence: 0.6},
	{Item: "egg", FromUnit: "each", ToUnit: "milliliter", Ratio: 46, Confidence: 0.5},
	{Item: "garlic", FromUnit: "clove", ToUnit: "gram", Ratio: 5, Confidence: 0.6},
	{Item: "onion", FromUnit: "each", ToUnit: "gram", Ratio: 150, Confidence: 0.5},
	{Item: "lemon", FromUnit: "each", ToUnit: "milliliter", Ratio: 45, Confidence: 0.4},
	{Item: "butter", FromUnit: "stick", ToUnit: "gram", Ratio: 113, Confidence: 0.8},
	{Item: "bread", FromUnit: "slice", ToUnit: "gram", Ratio: 30, Confidence: 0.5},
	{Item: "", FromUnit: "can", ToUnit: "gram", Ratio: 400, Confidence: 0.3},
}

// Estimator answers from a rule table. Rules match on an item substring and canonical
// unit names; the first matching rule wins.
type Estimator struct {
	rules []Rule
	err   error

	mu    sync.Mutex
	calls []estimator.Request
}

func NewEstimator(rules ...Rule) *Estimator {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Estimator{rules: rules}
}

// Failing returns an estimator whose every call fails with err.
func Failing(err error) *Estimator {
	return &Estimator{err: err}
}

func (e *Estimator) Estimate(ctx context.Context, req estimator.Request) (estimator.Estimate, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()

	slog.Info("ESTIMATOR: mock estimate requested", "item", req.Item, "from", req.FromUnit, "to", req.ToUnit)

	if err := ctx.Err(); err != nil {
		return estimator.Estimate{}, err
	}
	if e.err != nil {
		return estimator.Estimate{}, e.err
	}

	item := strings.ToLower(req.Item)
	from := units.Normalize(req.FromUnit).Name
	to := units.Normalize(req.ToUnit).Name
	for _, r := range e.rules {
		if r.Item != "" && !strings.Contains(item, r.Item) {
			continue
		}
		if units.Normalize(r.FromUnit).Name == from && units.Normalize(r.ToUnit).Name == to {
			return estimator.Estimate{Amount: req.Quantity * r.Ratio, Confidence: r.Confidence}, nil
		}
		if units.Normalize(r.FromUnit).Name == to && units.Normalize(r.ToUnit).Name == from {
			return estimator.Estimate{Amount: req.Quantity / r.Ratio, Confidence: r.Confidence}, nil
		}
	}
	return estimator.Estimate{}, estimator.ErrNoEstimate
}

// Calls returns the requests seen so far.
func (e *Estimator) Calls() []estimator.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]estimator.Request, len(e.calls))
	copy(out, e.calls)
	return out
}
