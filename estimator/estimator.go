// Package estimator defines the fallback tier consulted when no deterministic conversion
// exists between two units, such as "2 large eggs" into grams.
package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoEstimate is returned when the estimator has no answer for a request.
var ErrNoEstimate = errors.New("no estimate available")

// Request asks how much of ToUnit corresponds to Quantity of FromUnit for Item.
type Request struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	FromUnit string  `json:"from_unit"`
	ToUnit   string  `json:"to_unit"`
}

// Estimate is a provisional answer. Callers must never treat it as exact.
type Estimate struct {
	Amount     float64 `json:"amount"`
	Confidence float64 `json:"confidence"`
}

type Estimator interface {
	Estimate(ctx context.Context, req Request) (Estimate, error)
}

// RateLimited throttles calls to an underlying estimator. Calls wait for a token until
// their context is done.
type RateLimited struct {
	next    Estimator
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with a burst of one. A non-positive
// rate disables throttling.
func NewRateLimited(next Estimator, perMinute int) *RateLimited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (r *RateLimited) Estimate(ctx context.Context, req Request) (Estimate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		slog.Warn("ESTIMATOR: rate limit wait aborted", "item", req.Item, "error", err)
		return Estimate{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Estimate(ctx, req)
}

// SystemPrompt instructs a language model to answer estimation requests in JSON.
const SystemPrompt = `You convert kitchen quantities between units that have no fixed conversion.
Answer with a single JSON object and nothing else: {"amount": <number or null>, "confidence": <number between 0 and 1>}.
Use null for amount when you cannot give a reasonable estimate. Never explain.`

// UserPrompt renders a request for a language model.
func UserPrompt(req Request) string {
	return fmt.Sprintf("How many %s is %g %s of %s?", req.ToUnit, req.Quantity, req.FromUnit, req.Item)
}

type answer struct {
	Amount     *float64 `json:"amount"`
	Confidence float64  `json:"confidence"`
}

// ParseAnswer decodes a model's JSON answer. A null, non-positive or non-finite amount is
// ErrNoEstimate.
func ParseAnswer(text string) (Estimate, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}

	var a answer
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return Estimate{}, fmt.Errorf("failed to decode estimate %q: %w", text, err)
	}
	if a.Amount == nil || *a.Amount <= 0 || math.IsNaN(*a.Amount) || math.IsInf(*a.Amount, 0) {
		return Estimate{}, ErrNoEstimate
	}
	return Estimate{Amount: *a.Amount, Confidence: math.Max(0, math.Min(1, a.Confidence))}, nil
}
