// Package coordinator runs recipe completions against the pantry: it scales a recipe, matches
// every ingredient to pantry lots and drives the consumption planner, either as a dry run over
// a scratch copy of the pantry or committed to the real store.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pantrycook"
	"pantrycook/consume"
	"pantrycook/estimator"
	"pantrycook/match"
	"pantrycook/pantry"
	"pantrycook/slack"
	"pantrycook/tools/storage"
)

// Config wires a Coordinator. Store is required; everything else has a default.
type Config struct {
	Store      storage.LotStore
	Classifier consume.Classifier
	Matcher    *match.Matcher

	// Estimator is the fallback tier. Nil disables estimation.
	Estimator        estimator.Estimator
	EstimatorTimeout time.Duration
	Epsilon          float64

	// Concurrency bounds how many ingredients of one recipe are planned at once.
	Concurrency int

	Logger pantrycook.ConsumptionLogger

	// Slack receives a shortage report after each committed completion.
	Slack        pantrycook.SlackClient
	SlackChannel string

	Tracer trace.Tracer
	Meter  metric.Meter
}

type Coordinator struct {
	store        storage.LotStore
	classifier   consume.Classifier
	matcher      *match.Matcher
	estimator    estimator.Estimator
	estTimeout   time.Duration
	epsilon      float64
	concurrency  int
	logger       pantrycook.ConsumptionLogger
	slack        pantrycook.SlackClient
	slackChannel string
	tracer       trace.Tracer
	metrics      *instruments
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("coordinator needs a lot store")
	}
	if cfg.Matcher == nil {
		cfg.Matcher = match.New(match.DefaultSubstitutions)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = pantrycook.NewNoOpConsumptionLogger()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(pantrycook.TracerNameCoordinator)
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter(pantrycook.MeterNameCoordinator)
	}

	metrics, err := newInstruments(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}

	c := &Coordinator{
		store:        cfg.Store,
		classifier:   cfg.Classifier,
		matcher:      cfg.Matcher,
		estTimeout:   cfg.EstimatorTimeout,
		epsilon:      cfg.Epsilon,
		concurrency:  cfg.Concurrency,
		logger:       cfg.Logger,
		slack:        cfg.Slack,
		slackChannel: cfg.SlackChannel,
		tracer:       cfg.Tracer,
		metrics:      metrics,
	}
	if cfg.Estimator != nil {
		c.estimator = &countingEstimator{next: cfg.Estimator, calls: metrics.estimatorCalls}
	}
	return c, nil
}

// lotSource is a LotStore as far as planning is concerned.
type lotSource interface {
	List(ctx context.Context) ([]pantry.Lot, error)
	consume.LotUpdater
}

func (c *Coordinator) planner(store consume.LotUpdater) *consume.Planner {
	opts := []consume.Option{
		consume.WithLotStore(store),
		consume.WithEpsilon(c.epsilon),
		consume.WithEstimator(c.estimator, c.estTimeout),
	}
	if c.classifier != nil {
		opts = append(opts, consume.WithClassifier(c.classifier))
	}
	return consume.NewPlanner(opts...)
}

// scratch copies the current pantry into a throwaway store for dry runs.
func (c *Coordinator) scratch(ctx context.Context) (*storage.MemoryLotStore, error) {
	if m, ok := c.store.(interface{ Clone() *storage.MemoryLotStore }); ok {
		return m.Clone(), nil
	}
	lots, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pantry lots: %w", err)
	}
	return storage.NewMemoryLotStore(lots...), nil
}

// Candidates ranks the current pantry lots for one ingredient.
func (c *Coordinator) Candidates(ctx context.Context, ingredient string) ([]match.Candidate, error) {
	lots, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pantry lots: %w", err)
	}
	return c.matcher.Match(ingredient, lots), nil
}

// ConsumeIngredient consumes one requirement. A dry run plans against a scratch copy of the
// pantry and leaves the store untouched.
func (c *Coordinator) ConsumeIngredient(ctx context.Context, req pantry.Requirement, dryRun bool) (consume.Result, error) {
	var src lotSource = c.store
	if dryRun {
		s, err := c.scratch(ctx)
		if err != nil {
			return consume.Result{}, err
		}
		src = s
	}

	res, err := c.consumeOne(ctx, c.planner(src), src, "", req, dryRun)
	if err != nil {
		return res, err
	}
	if !dryRun {
		if err := c.flush(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Check reports whether recipe can be cooked for servings without touching the pantry.
func (c *Coordinator) Check(ctx context.Context, recipe pantry.Recipe, servings int) (Report, error) {
	scratch, err := c.scratch(ctx)
	if err != nil {
		return Report{}, err
	}
	return c.run(ctx, scratch, recipe, servings, true)
}

// Complete consumes recipe for servings from the pantry. Shortages are reported, not
// returned as errors: whatever the pantry holds is drawn. With strict set, nothing is drawn
// unless a dry run shows every required ingredient is available.
func (c *Coordinator) Complete(ctx context.Context, recipe pantry.Recipe, servings int, strict bool) (Report, error) {
	if strict {
		check, err := c.Check(ctx, recipe, servings)
		if err != nil {
			return check, err
		}
		if !check.Cookable {
			slog.Info("COORDINATOR: strict completion refused", "recipe", recipe.ID, "shortages", check.Shortages)
			return check, nil
		}
	}

	report, err := c.run(ctx, c.store, recipe, servings, false)
	if err != nil {
		return report, err
	}
	if err := c.flush(ctx); err != nil {
		return report, err
	}
	c.notify(ctx, report)
	return report, nil
}

func (c *Coordinator) run(ctx context.Context, src lotSource, recipe pantry.Recipe, servings int, dryRun bool) (Report, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Complete", trace.WithAttributes(
		attribute.String("recipe.id", recipe.ID),
		attribute.Int("recipe.servings", servings),
		attribute.Bool("dry_run", dryRun),
	))
	defer span.End()

	start := time.Now()
	slog.Info("COORDINATOR: Starting recipe", "recipe", recipe.ID, "servings", servings, "dry_run", dryRun)

	reqs := recipe.Scaled(servings)
	for _, req := range reqs {
		if err := req.Validate(); err != nil {
			span.SetStatus(codes.Error, "invalid recipe")
			span.RecordError(err)
			return Report{}, fmt.Errorf("recipe %s: %w: %w", recipe.ID, consume.ErrInvalidRequirement, err)
		}
	}

	planner := c.planner(src)
	results := make([]consume.Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.consumeOne(gctx, planner, src, recipe.ID, req, dryRun)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	report := newReport(recipe, servings, dryRun, reqs, results)
	c.metrics.completionDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.Bool("dry_run", dryRun),
		attribute.Bool("cookable", report.Cookable),
	))

	if err != nil {
		span.SetStatus(codes.Error, "consumption failed")
		span.RecordError(err)
		return report, err
	}

	slog.Info("COORDINATOR: Recipe finished",
		"recipe", recipe.ID,
		"cookable", report.Cookable,
		"shortages", len(report.Shortages),
		"estimated", len(report.Estimated),
		"duration", time.Since(start),
	)
	span.SetAttributes(attribute.Bool("recipe.cookable", report.Cookable))
	return report, nil
}

func (c *Coordinator) consumeOne(ctx context.Context, planner *consume.Planner, src lotSource, recipeID string, req pantry.Requirement, dryRun bool) (consume.Result, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.consumeIngredient", trace.WithAttributes(
		attribute.String("ingredient", req.Name),
	))
	defer span.End()

	lots, err := src.List(ctx)
	if err != nil {
		span.RecordError(err)
		return consume.Result{}, fmt.Errorf("failed to list pantry lots: %w", err)
	}
	candidates := c.matcher.Match(req.Name, lots)
	ranked := make([]pantry.Lot, len(candidates))
	for i, cand := range candidates {
		ranked[i] = cand.Lot
	}

	res, err := planner.Consume(ctx, req, ranked)
	c.metrics.record(ctx, res, dryRun)
	c.log(recipeID, req, res, dryRun, err)

	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Int("candidates", len(candidates)),
		attribute.Int("warnings", len(res.Warnings)),
	)
	if err != nil {
		span.SetStatus(codes.Error, "consume failed")
		span.RecordError(err)
		return res, err
	}
	pantrycook.Dump(res)
	return res, nil
}

func (c *Coordinator) log(recipeID string, req pantry.Requirement, res consume.Result, dryRun bool, err error) {
	entry := pantrycook.ConsumptionLog{
		Timestamp:  time.Now(),
		RecipeID:   recipeID,
		Ingredient: req.Name,
		Status:     string(res.Status),
		DryRun:     dryRun,
		Result:     res,
		Warnings:   res.Warnings,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if lerr := c.logger.LogConsumption(entry); lerr != nil {
		slog.Warn("COORDINATOR: failed to log consumption", "ingredient", req.Name, "error", lerr)
	}
}

type flusher interface {
	Flush(ctx context.Context) error
}

func (c *Coordinator) flush(ctx context.Context) error {
	f, ok := c.store.(flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(ctx); err != nil {
		return fmt.Errorf("failed to persist pantry: %w", err)
	}
	return nil
}

func (c *Coordinator) notify(ctx context.Context, report Report) {
	if c.slack == nil {
		return
	}
	msg := slack.FormatShortages(report.RecipeName, report.SlackShortages(), report.Estimated)
	if err := c.slack.PostMessage(ctx, c.slackChannel, msg); err != nil {
		slog.Warn("COORDINATOR: failed to post shortage report", "recipe", report.RecipeID, "error", err)
	}
}
