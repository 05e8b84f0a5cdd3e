// Package consume subtracts recipe requirements from ranked pantry lots. It converts each
// requirement into every lot's unit through an ordered strategy chain, never writes a negative
// quantity, and reports shortfalls as result states rather than errors.
package consume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pantrycook"
	"pantrycook/categorize"
	"pantrycook/estimator"
	"pantrycook/pantry"
	"pantrycook/units"
)

// DefaultEpsilon absorbs floating-point drift when deciding a requirement is covered.
const DefaultEpsilon = 0.01

// ErrInvalidRequirement is returned for requirements rejected before planning starts.
var ErrInvalidRequirement = errors.New("invalid requirement")

// LotUpdater commits a draw from a lot. Decrement must be atomic per lot: it either removes
// amount and returns the new quantity, or fails with a *pantry.StockError carrying the
// quantity actually available.
type LotUpdater interface {
	Decrement(ctx context.Context, lotID string, amount float64) (float64, error)
}

// Classifier resolves an item's measurement category.
type Classifier interface {
	Categorize(ctx context.Context, item string) categorize.Categorization
}

type Planner struct {
	store      LotUpdater
	classifier Classifier
	strategies []Strategy
	epsilon    float64
	maxRetries int
	tracer     trace.Tracer
}

type Option func(*Planner)

// WithLotStore commits draws to store. Without one the planner only plans: remaining lot
// quantities are computed locally and nothing is written.
func WithLotStore(store LotUpdater) Option {
	return func(p *Planner) {
		p.store = store
	}
}

func WithClassifier(c Classifier) Option {
	return func(p *Planner) {
		p.classifier = c
	}
}

// WithStrategies replaces the conversion chain.
func WithStrategies(strategies ...Strategy) Option {
	return func(p *Planner) {
		p.strategies = strategies
	}
}

// WithEstimator appends the estimation tier to the chain. timeout bounds each call.
func WithEstimator(e estimator.Estimator, timeout time.Duration) Option {
	return func(p *Planner) {
		if e == nil {
			return
		}
		p.strategies = append(p.strategies, Estimation{Estimator: e, Timeout: timeout})
	}
}

func WithEpsilon(eps float64) Option {
	return func(p *Planner) {
		if eps > 0 {
			p.epsilon = eps
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Planner) {
		p.tracer = t
	}
}

func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		strategies: DefaultStrategies(),
		epsilon:    DefaultEpsilon,
		maxRetries: 3,
		tracer:     otel.Tracer(pantrycook.TracerNamePlanner),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.classifier == nil {
		p.classifier = categorize.New()
	}
	return p
}

// Consume draws req from lots in the order given. lots are expected to be ranked already,
// usually by match.Match. The returned error is non-nil only for an invalid requirement or an
// unexpected store failure; in the latter case the result describes the draws already
// committed.
func (p *Planner) Consume(ctx context.Context, req pantry.Requirement, lots []pantry.Lot) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "consume", trace.WithAttributes(
		attribute.String("ingredient", req.Name),
		attribute.String("unit", req.Unit),
		attribute.Int("lots", len(lots)),
	))
	defer span.End()

	res, err := p.consume(ctx, req, lots)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Int("consumed_items", len(res.ConsumedItems)),
	)
	return res, err
}

func (p *Planner) consume(ctx context.Context, req pantry.Requirement, lots []pantry.Lot) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequirement, err)
	}

	res := Result{
		IngredientName:    req.Name,
		RequestedQuantity: req.Quantity,
		RequestedUnit:     req.Unit,
		ConsumedItems:     []ConsumedItem{},
		Warnings:          []string{},
	}

	if req.Quantity == nil {
		res.Status = StatusUnspecified
		res.warn("no amount specified")
		return res, nil
	}

	needed := *req.Quantity
	if needed <= p.epsilon {
		res.Status = StatusSatisfied
		res.Confidence = 1
		return res, nil
	}

	if len(lots) == 0 {
		res.Status = StatusMissing
		res.Missing = true
		res.ShortfallQuantity = needed
		slog.Info("PLANNER: no candidate lots", "ingredient", req.Name)
		return res, nil
	}

	cat := p.classifier.Categorize(ctx, req.Name)
	reqUnit := resolveUnit(req.Unit, cat)
	memo := &estimateMemo{}

	remaining := needed
	confidence := 1.0

	for _, lot := range lots {
		if remaining <= p.epsilon {
			break
		}
		if lot.Quantity <= 0 {
			continue
		}

		lotUnit := resolveUnit(lot.Unit, cat)
		conv, err := p.convert(ctx, ConversionRequest{
			Item:           req.Name,
			Quantity:       remaining,
			From:           reqUnit,
			To:             lotUnit,
			Categorization: cat,
			memo:           memo,
		})
		if err != nil {
			if errors.Is(err, ErrEstimatorUnavailable) {
				res.warn(fmt.Sprintf("Estimator unavailable for %s between %s and %s.", req.Name, rawUnit(req.Unit, reqUnit), rawUnit(lot.Unit, lotUnit)))
			}
			res.warn(fmt.Sprintf("No conversion available between %s and %s.", rawUnit(req.Unit, reqUnit), rawUnit(lot.Unit, lotUnit)))
			continue
		}
		if conv.Quantity <= 0 {
			continue
		}

		taken, left, err := p.draw(ctx, lot, conv.Quantity)
		switch {
		case errors.Is(err, pantry.ErrLotNotFound):
			res.warn(fmt.Sprintf("Lot %s is no longer in the pantry.", lot.ID))
			continue
		case errors.Is(err, errLotContended):
			res.warn(fmt.Sprintf("Lot %s changed while consuming %s.", lot.ID, req.Name))
			continue
		case err != nil:
			p.finish(&res, remaining, confidence)
			return res, fmt.Errorf("failed to consume %s from lot %s: %w", req.Name, lot.ID, err)
		}
		if taken <= 0 {
			continue
		}

		if taken >= conv.Quantity {
			remaining = 0
		} else {
			remaining -= remaining * (taken / conv.Quantity)
		}
		confidence = math.Min(confidence, conv.Confidence)

		res.ConsumedItems = append(res.ConsumedItems, ConsumedItem{
			LotID:             lot.ID,
			ProductName:       lot.ProductName,
			QuantityUsed:      taken,
			UnitUsed:          displayUnit(lot.Unit, lotUnit),
			Provenance:        conv.Provenance,
			Confidence:        conv.Confidence,
			RemainingQuantity: left,
		})
		slog.Debug("PLANNER: drew from lot", "ingredient", req.Name, "lot", lot.ID, "taken", taken, "unit", lotUnit.Name, "provenance", conv.Provenance)
	}

	p.finish(&res, remaining, confidence)
	return res, nil
}

func (p *Planner) finish(res *Result, remaining, confidence float64) {
	if len(res.ConsumedItems) > 0 {
		res.Confidence = confidence
	}
	if remaining <= p.epsilon {
		res.Status = StatusSatisfied
		return
	}
	res.Status = StatusInsufficient
	res.Insufficient = true
	res.ShortfallQuantity = remaining
}

// convert runs the strategy chain in order. ErrNoConversion or an overflowing answer moves on
// to the next tier; an estimator failure is remembered so the caller can report it distinctly.
func (p *Planner) convert(ctx context.Context, req ConversionRequest) (Conversion, error) {
	var estimatorErr error
	for _, s := range p.strategies {
		conv, err := s.Attempt(ctx, req)
		if err == nil && pantry.Finite(conv.Quantity) {
			return conv, nil
		}
		if errors.Is(err, ErrEstimatorUnavailable) {
			estimatorErr = err
		}
	}
	if estimatorErr != nil {
		return Conversion{}, estimatorErr
	}
	return Conversion{}, ErrNoConversion
}

var errLotContended = errors.New("lot contended")

// draw removes up to want from lot and returns the amount taken and the lot's new quantity.
// A lost race is retried against the availability the store reported.
func (p *Planner) draw(ctx context.Context, lot pantry.Lot, want float64) (float64, float64, error) {
	take := math.Min(want, lot.Quantity)
	if p.store == nil {
		return take, math.Max(0, lot.Quantity-take), nil
	}

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		left, err := p.store.Decrement(ctx, lot.ID, take)
		if err == nil {
			return take, left, nil
		}
		var stockErr *pantry.StockError
		if !errors.As(err, &stockErr) {
			return 0, 0, err
		}
		if stockErr.Available <= 0 {
			return 0, 0, nil
		}
		slog.Info("PLANNER: lot changed underneath, retrying", "lot", lot.ID, "requested", take, "available", stockErr.Available)
		take = math.Min(want, stockErr.Available)
	}
	return 0, 0, errLotContended
}

// resolveUnit normalizes raw. A missing or descriptive unit on a countable item means each.
func resolveUnit(raw string, cat categorize.Categorization) units.Unit {
	u := units.Normalize(raw)
	if (u.IsZero() || units.IsDescriptive(raw)) && cat.Countable() {
		return units.Each
	}
	return u
}

// rawUnit is the unit as the caller wrote it, for warnings.
func rawUnit(raw string, u units.Unit) string {
	if s := strings.TrimSpace(raw); s != "" {
		return s
	}
	if !u.IsZero() {
		return u.Name
	}
	return "no unit"
}

func displayUnit(raw string, u units.Unit) string {
	if u.Known() {
		return u.Name
	}
	return strings.TrimSpace(raw)
}
