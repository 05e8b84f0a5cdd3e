package coordinator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"pantrycook/consume"
	"pantrycook/estimator"
)

type instruments struct {
	requirements       metric.Int64Counter
	missing            metric.Int64Counter
	insufficient       metric.Int64Counter
	estimatorCalls     metric.Int64Counter
	completionDuration metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var (
		in  instruments
		err error
	)
	if in.requirements, err = meter.Int64Counter("requirements_total",
		metric.WithDescription("Total number of ingredient requirements planned")); err != nil {
		return nil, err
	}
	if in.missing, err = meter.Int64Counter("requirements_missing_total",
		metric.WithDescription("Requirements with no matching pantry lot")); err != nil {
		return nil, err
	}
	if in.insufficient, err = meter.Int64Counter("requirements_insufficient_total",
		metric.WithDescription("Requirements whose matching lots could not cover the amount")); err != nil {
		return nil, err
	}
	if in.estimatorCalls, err = meter.Int64Counter("estimator_calls_total",
		metric.WithDescription("Calls made to the fallback estimator")); err != nil {
		return nil, err
	}
	if in.completionDuration, err = meter.Float64Histogram("recipe_completion_duration_seconds",
		metric.WithDescription("Duration of recipe checks and completions in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &in, nil
}

func (in *instruments) record(ctx context.Context, res consume.Result, dryRun bool) {
	attrs := metric.WithAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Bool("dry_run", dryRun),
	)
	in.requirements.Add(ctx, 1, attrs)
	switch res.Status {
	case consume.StatusMissing:
		in.missing.Add(ctx, 1, attrs)
	case consume.StatusInsufficient:
		in.insufficient.Add(ctx, 1, attrs)
	}
}

// countingEstimator counts calls into the fallback tier, successful or not.
type countingEstimator struct {
	next  estimator.Estimator
	calls metric.Int64Counter
}

func (e *countingEstimator) Estimate(ctx context.Context, req estimator.Request) (estimator.Estimate, error) {
	est, err := e.next.Estimate(ctx, req)
	e.calls.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", err == nil)))
	return est, err
}
