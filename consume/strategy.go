package consume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"pantrycook/categorize"
	"pantrycook/estimator"
	"pantrycook/units"
)

// ErrNoConversion is returned by a strategy that cannot convert a request. The planner then
// tries the next strategy.
var ErrNoConversion = errors.New("no conversion available")

// ErrEstimatorUnavailable wraps estimator failures: errors, timeouts and null answers.
var ErrEstimatorUnavailable = errors.New("estimator unavailable")

// ConversionRequest asks for Quantity of From expressed in To, for one item.
type ConversionRequest struct {
	Item           string
	Quantity       float64
	From, To       units.Unit
	Categorization categorize.Categorization

	memo *estimateMemo
}

// Conversion is a successful strategy answer.
type Conversion struct {
	Quantity   float64
	Provenance Provenance
	Confidence float64
}

// Strategy is one tier of the conversion fallback chain.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, req ConversionRequest) (Conversion, error)
}

// Deterministic converts through the fixed unit tables. Two identical unrecognized unit
// tokens ("pinch" and "pinch") convert one to one, as do two missing units.
type Deterministic struct{}

func (Deterministic) Name() string { return "deterministic" }

func (Deterministic) Attempt(_ context.Context, req ConversionRequest) (Conversion, error) {
	if q, ok := units.Convert(req.Quantity, req.From, req.To); ok {
		return Conversion{Quantity: q, Provenance: ProvenanceDeterministic, Confidence: 1}, nil
	}
	if !req.From.Known() && req.From.Name == req.To.Name {
		return Conversion{Quantity: req.Quantity, Provenance: ProvenanceDeterministic, Confidence: 1}, nil
	}
	return Conversion{}, ErrNoConversion
}

// densities in grams per milliliter, matched against the item name's words. Items with
// no entry use water.
var densities = []struct {
	word    string
	density float64
}{
	{"honey", 1.42},
	{"molasses", 1.4},
	{"syrup", 1.33},
	{"oil", 0.92},
	{"butter", 0.911},
	{"cream", 1.01},
	{"yogurt", 1.03},
	{"milk", 1.03},
	{"sugar", 0.85},
	{"salt", 1.2},
	{"rice", 0.85},
	{"water", 1.0},
}

const (
	waterDensity        = 1.0
	tableDensityConf    = 0.85
	waterEquivalentConf = 0.7
)

// ReferenceDensity bridges volume and weight for items whose categorization admits both
// measures, using a reference density table.
type ReferenceDensity struct{}

func (ReferenceDensity) Name() string { return "reference_density" }

func (ReferenceDensity) Attempt(_ context.Context, req ConversionRequest) (Conversion, error) {
	fc, tc := req.From.Category, req.To.Category
	crossing := (fc == units.Weight && tc == units.Volume) || (fc == units.Volume && tc == units.Weight)
	if !crossing {
		return Conversion{}, ErrNoConversion
	}
	cat := req.Categorization
	if !cat.AdmitsCategory(units.Weight) || !cat.AdmitsCategory(units.Volume) {
		return Conversion{}, ErrNoConversion
	}

	density, conf := lookupDensity(req.Item)

	ff, _ := units.Factor(req.From)
	tf, _ := units.Factor(req.To)
	base := req.Quantity * ff
	if fc == units.Volume {
		base *= density
	} else {
		base /= density
	}
	return Conversion{Quantity: base / tf, Provenance: ProvenanceReference, Confidence: conf}, nil
}

func lookupDensity(item string) (float64, float64) {
	words := strings.Fields(strings.ToLower(item))
	for _, d := range densities {
		for _, w := range words {
			if w == d.word || w == d.word+"s" {
				return d.density, tableDensityConf
			}
		}
	}
	return waterDensity, waterEquivalentConf
}

// MaxEstimateConfidence caps the confidence of any estimated conversion.
const MaxEstimateConfidence = 0.6

// Estimation asks the fallback estimator. It calls the estimator at most once per
// requirement: the answer is kept as a ratio and reused for later lots in the same unit
// pair, and any other unit pair in that requirement gets ErrNoConversion.
type Estimation struct {
	Estimator estimator.Estimator
	Timeout   time.Duration
}

func (Estimation) Name() string { return "estimation" }

type estimateMemo struct {
	called   bool
	from, to units.Unit
	ratio    float64
	conf     float64
	err      error
}

func (s Estimation) Attempt(ctx context.Context, req ConversionRequest) (Conversion, error) {
	if s.Estimator == nil || req.From.IsZero() || req.To.IsZero() || req.Quantity <= 0 {
		return Conversion{}, ErrNoConversion
	}

	memo := req.memo
	if memo == nil {
		memo = &estimateMemo{}
	}
	if memo.called {
		if memo.from != req.From || memo.to != req.To {
			return Conversion{}, ErrNoConversion
		}
		if memo.err != nil {
			return Conversion{}, memo.err
		}
		return Conversion{Quantity: req.Quantity * memo.ratio, Provenance: ProvenanceEstimated, Confidence: memo.conf}, nil
	}

	memo.called, memo.from, memo.to = true, req.From, req.To

	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	est, err := s.Estimator.Estimate(callCtx, estimator.Request{
		Item:     req.Item,
		Quantity: req.Quantity,
		FromUnit: req.From.Name,
		ToUnit:   req.To.Name,
	})
	if err == nil && (est.Amount <= 0 || math.IsNaN(est.Amount) || math.IsInf(est.Amount, 0)) {
		err = estimator.ErrNoEstimate
	}
	if err != nil {
		slog.Warn("PLANNER: estimator failed", "item", req.Item, "from", req.From.Name, "to", req.To.Name, "error", err)
		memo.err = fmt.Errorf("%w: %w", ErrEstimatorUnavailable, err)
		return Conversion{}, memo.err
	}

	memo.ratio = est.Amount / req.Quantity
	memo.conf = math.Min(MaxEstimateConfidence, math.Max(0, est.Confidence))
	return Conversion{Quantity: est.Amount, Provenance: ProvenanceEstimated, Confidence: memo.conf}, nil
}

// DefaultStrategies is the chain used when a planner is built without one: deterministic
// tables, then reference densities. The estimation tier is added by WithEstimator.
func DefaultStrategies() []Strategy {
	return []Strategy{Deterministic{}, ReferenceDensity{}}
}
