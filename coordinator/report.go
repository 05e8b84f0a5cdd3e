package coordinator

import (
	"math"

	"pantrycook/consume"
	"pantrycook/pantry"
	"pantrycook/slack"
)

// Report is the outcome of checking or completing one recipe. Results follow the recipe's
// ingredient order.
type Report struct {
	RecipeID   string           `json:"recipe_id"`
	RecipeName string           `json:"recipe_name"`
	Servings   int              `json:"servings"`
	DryRun     bool             `json:"dry_run"`
	Cookable   bool             `json:"cookable"`
	Results    []consume.Result `json:"results"`
	// Shortages names the required ingredients that came up missing or short.
	Shortages []string `json:"shortages"`
	// Optional names optional ingredients that came up short; they never block a recipe.
	Optional []string `json:"optional_shortages,omitempty"`
	// Estimated names ingredients drawn through an estimated conversion.
	Estimated  []string `json:"estimated,omitempty"`
	Confidence float64  `json:"confidence"`

	optional []bool
}

func newReport(recipe pantry.Recipe, servings int, dryRun bool, reqs []pantry.Requirement, results []consume.Result) Report {
	r := Report{
		RecipeID:   recipe.ID,
		RecipeName: recipe.Name,
		Servings:   servings,
		DryRun:     dryRun,
		Cookable:   true,
		Results:    results,
		Shortages:  []string{},
		Confidence: 1,
		optional:   make([]bool, len(reqs)),
	}
	if r.RecipeName == "" {
		r.RecipeName = recipe.ID
	}

	drew := false
	for i, res := range results {
		name := reqs[i].Name
		r.optional[i] = reqs[i].Optional
		if res.Blocking() {
			if reqs[i].Optional {
				r.Optional = append(r.Optional, name)
			} else {
				r.Shortages = append(r.Shortages, name)
				r.Cookable = false
			}
		}
		if res.Estimated() {
			r.Estimated = append(r.Estimated, name)
		}
		if len(res.ConsumedItems) > 0 {
			drew = true
			r.Confidence = math.Min(r.Confidence, res.Confidence)
		}
	}
	if !drew {
		r.Confidence = 0
	}
	return r
}

// SlackShortages converts the required shortages for a Slack report.
func (r Report) SlackShortages() []slack.Shortage {
	var out []slack.Shortage
	for i, res := range r.Results {
		if !res.Blocking() || (i < len(r.optional) && r.optional[i]) {
			continue
		}
		out = append(out, slack.Shortage{
			Ingredient: res.IngredientName,
			Missing:    res.Missing,
			Short:      res.ShortfallQuantity,
			Unit:       res.RequestedUnit,
			Warnings:   res.Warnings,
		})
	}
	return out
}
