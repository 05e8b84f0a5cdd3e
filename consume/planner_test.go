package consume

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"pantrycook/estimator"
	"pantrycook/estimator/mock"
	"pantrycook/pantry"
)

// fakeStore is a LotUpdater with the same decrement-if-sufficient contract as the real stores.
type fakeStore struct {
	mu  sync.Mutex
	qty map[string]float64
	err error
}

func newFakeStore(lots ...pantry.Lot) *fakeStore {
	s := &fakeStore{qty: map[string]float64{}}
	for _, l := range lots {
		s.qty[l.ID] = l.Quantity
	}
	return s
}

func (s *fakeStore) Decrement(_ context.Context, lotID string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	q, ok := s.qty[lotID]
	if !ok {
		return 0, pantry.ErrLotNotFound
	}
	if amount > q+1e-9 {
		return 0, &pantry.StockError{LotID: lotID, Requested: amount, Available: q}
	}
	q -= amount
	if q < 0 {
		q = 0
	}
	s.qty[lotID] = q
	return q, nil
}

func (s *fakeStore) get(id string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qty[id]
}

func TestPlanner_Consume_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("flour cups against grams", func(t *testing.T) {
		lot := pantry.Lot{ID: "flour-1", ProductName: "All-Purpose Flour", Quantity: 1000, Unit: "gram"}
		store := newFakeStore(lot)
		p := NewPlanner(WithLotStore(store))

		res, err := p.Consume(ctx, pantry.Requirement{Name: "flour", Quantity: pantry.Quantity(2), Unit: "cup"}, []pantry.Lot{lot})
		require.NoError(t, err)

		assert.Equal(t, StatusSatisfied, res.Status)
		assert.False(t, res.Insufficient)
		assert.False(t, res.Missing)
		assert.Empty(t, res.Warnings)
		require.Len(t, res.ConsumedItems, 1)
		item := res.ConsumedItems[0]
		assert.InDelta(t, 473.18, item.QuantityUsed, 0.01)
		assert.Equal(t, "gram", item.UnitUsed)
		assert.Equal(t, ProvenanceReference, item.Provenance)
		assert.InDelta(t, 526.82, item.RemainingQuantity, 0.01)
		assert.InDelta(t, 526.82, store.get("flour-1"), 0.01)
	})

	t.Run("descriptive unit on eggs", func(t *testing.T) {
		lot := pantry.Lot{ID: "eggs-1", ProductName: "Eggs", Quantity: 12, Unit: "each"}
		store := newFakeStore(lot)
		p := NewPlanner(WithLotStore(store))

		res, err := p.Consume(ctx, pantry.Requirement{Name: "eggs", Quantity: pantry.Quantity(2), Unit: "large"}, []pantry.Lot{lot})
		require.NoError(t, err)

		assert.Equal(t, StatusSatisfied, res.Status)
		require.Len(t, res.ConsumedItems, 1)
		assert.Equal(t, 2.0, res.ConsumedItems[0].QuantityUsed)
		assert.Equal(t, "each", res.ConsumedItems[0].UnitUsed)
		assert.Equal(t, ProvenanceDeterministic, res.ConsumedItems[0].Provenance)
		assert.Equal(t, 10.0, store.get("eggs-1"))
	})

	t.Run("volume against weight without a bridge", func(t *testing.T) {
		lot := pantry.Lot{ID: "chicken-1", ProductName: "Chicken Breast", Quantity: 2, Unit: "pound"}
		store := newFakeStore(lot)
		p := NewPlanner(WithLotStore(store))

		res, err := p.Consume(ctx, pantry.Requirement{Name: "chicken breast", Quantity: pantry.Quantity(500), Unit: "ml"}, []pantry.Lot{lot})
		require.NoError(t, err)

		assert.Equal(t, StatusInsufficient, res.Status)
		assert.True(t, res.Insufficient)
		assert.Empty(t, res.ConsumedItems)
		assert.Contains(t, res.Warnings, "No conversion available between ml and pound.")
		assert.Equal(t, 500.0, res.ShortfallQuantity)
		assert.Equal(t, 2.0, store.get("chicken-1"))
	})

	t.Run("smaller yogurt lot drained first", func(t *testing.T) {
		small := pantry.Lot{ID: "yog-small", ProductName: "Greek Yogurt", Quantity: 200, Unit: "g"}
		large := pantry.Lot{ID: "yog-large", ProductName: "Greek Yogurt", Quantity: 500, Unit: "g"}
		store := newFakeStore(small, large)
		p := NewPlanner(WithLotStore(store))

		res, err := p.Consume(ctx, pantry.Requirement{Name: "greek yogurt", Quantity: pantry.Quantity(600), Unit: "g"}, []pantry.Lot{small, large})
		require.NoError(t, err)

		assert.Equal(t, StatusSatisfied, res.Status)
		require.Len(t, res.ConsumedItems, 2)
		assert.Equal(t, "yog-small", res.ConsumedItems[0].LotID)
		assert.InDelta(t, 200, res.ConsumedItems[0].QuantityUsed, 1e-9)
		assert.Equal(t, "yog-large", res.ConsumedItems[1].LotID)
		assert.InDelta(t, 400, res.ConsumedItems[1].QuantityUsed, 1e-9)
		assert.InDelta(t, 0, store.get("yog-small"), 1e-9)
		assert.InDelta(t, 100, store.get("yog-large"), 1e-9)
	})
}

func TestPlanner_Consume_States(t *testing.T) {
	ctx := context.Background()
	p := NewPlanner()

	t.Run("no amount specified", func(t *testing.T) {
		lot := pantry.Lot{ID: "salt", ProductName: "Salt", Quantity: 500, Unit: "g"}
		res, err := p.Consume(ctx, pantry.Requirement{Name: "salt"}, []pantry.Lot{lot})
		require.NoError(t, err)
		assert.Equal(t, StatusUnspecified, res.Status)
		assert.False(t, res.Blocking())
		assert.Empty(t, res.ConsumedItems)
		assert.Equal(t, []string{"no amount specified"}, res.Warnings)
		assert.Zero(t, res.Confidence)
	})

	t.Run("zero quantity", func(t *testing.T) {
		res, err := p.Consume(ctx, pantry.Requirement{Name: "salt", Quantity: pantry.Quantity(0), Unit: "g"}, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusSatisfied, res.Status)
		assert.Empty(t, res.ConsumedItems)
	})

	t.Run("no candidates", func(t *testing.T) {
		res, err := p.Consume(ctx, pantry.Requirement{Name: "saffron", Quantity: pantry.Quantity(1), Unit: "g"}, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusMissing, res.Status)
		assert.True(t, res.Missing)
		assert.False(t, res.Insufficient)
		assert.True(t, res.Blocking())
		assert.Equal(t, 1.0, res.ShortfallQuantity)
	})

	t.Run("empty lots are skipped", func(t *testing.T) {
		lots := []pantry.Lot{
			{ID: "a", ProductName: "Rice", Quantity: 0, Unit: "g"},
			{ID: "b", ProductName: "Rice", Quantity: 300, Unit: "g"},
		}
		res, err := p.Consume(ctx, pantry.Requirement{Name: "rice", Quantity: pantry.Quantity(100), Unit: "g"}, lots)
		require.NoError(t, err)
		require.Len(t, res.ConsumedItems, 1)
		assert.Equal(t, "b", res.ConsumedItems[0].LotID)
		assert.Equal(t, 200.0, res.ConsumedItems[0].RemainingQuantity)
	})

	t.Run("mixed units across lots", func(t *testing.T) {
		lots := []pantry.Lot{
			{ID: "kg", ProductName: "Rice", Quantity: 0.25, Unit: "kg"},
			{ID: "lb", ProductName: "Rice", Quantity: 2, Unit: "lb"},
		}
		res, err := p.Consume(ctx, pantry.Requirement{Name: "rice", Quantity: pantry.Quantity(500), Unit: "g"}, lots)
		require.NoError(t, err)
		assert.Equal(t, StatusSatisfied, res.Status)
		require.Len(t, res.ConsumedItems, 2)
		assert.InDelta(t, 0.25, res.ConsumedItems[0].QuantityUsed, 1e-9)
		assert.InDelta(t, 250/453.592, res.ConsumedItems[1].QuantityUsed, 1e-6)
		assert.Equal(t, 1.0, res.Confidence)
	})

	t.Run("lot gone from store", func(t *testing.T) {
		lots := []pantry.Lot{
			{ID: "ghost", ProductName: "Rice", Quantity: 100, Unit: "g"},
			{ID: "real", ProductName: "Rice", Quantity: 100, Unit: "g"},
		}
		store := newFakeStore(lots[1])
		res, err := NewPlanner(WithLotStore(store)).Consume(ctx, pantry.Requirement{Name: "rice", Quantity: pantry.Quantity(50), Unit: "g"}, lots)
		require.NoError(t, err)
		assert.Equal(t, StatusSatisfied, res.Status)
		assert.Contains(t, res.Warnings, "Lot ghost is no longer in the pantry.")
		assert.Equal(t, 50.0, store.get("real"))
	})
}

func TestPlanner_Consume_InvalidRequirement(t *testing.T) {
	p := NewPlanner()
	tests := []struct {
		name string
		req  pantry.Requirement
	}{
		{"empty name", pantry.Requirement{Name: "  ", Quantity: pantry.Quantity(1)}},
		{"negative quantity", pantry.Requirement{Name: "milk", Quantity: pantry.Quantity(-1), Unit: "ml"}},
		{"NaN quantity", pantry.Requirement{Name: "greek yogurt", Quantity: pantry.Quantity(math.NaN()), Unit: "gram"}},
		{"infinite quantity", pantry.Requirement{Name: "rice", Quantity: pantry.Quantity(math.Inf(1)), Unit: "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := pantry.Lot{ID: "lot", ProductName: "Greek Yogurt", Quantity: 500, Unit: "gram"}
			store := newFakeStore(lot)
			_, err := NewPlanner(WithLotStore(store)).Consume(context.Background(), tt.req, []pantry.Lot{lot})
			assert.ErrorIs(t, err, ErrInvalidRequirement)
			assert.Equal(t, 500.0, store.get("lot"))
		})
	}
	_, err := p.Consume(context.Background(), pantry.Requirement{Name: "milk", Quantity: pantry.Quantity(math.NaN())}, nil)
	assert.ErrorIs(t, err, ErrInvalidRequirement)
}

func TestPlanner_Consume_HugeQuantities(t *testing.T) {
	ctx := context.Background()

	t.Run("drains every lot and reports a finite shortfall", func(t *testing.T) {
		lots := []pantry.Lot{
			{ID: "small", ProductName: "Rice", Quantity: 100, Unit: "g"},
			{ID: "big", ProductName: "Rice", Quantity: 900, Unit: "g"},
		}
		store := newFakeStore(lots...)
		res, err := NewPlanner(WithLotStore(store)).Consume(ctx, pantry.Requirement{Name: "rice", Quantity: pantry.Quantity(1e308), Unit: "g"}, lots)
		require.NoError(t, err)

		assert.Equal(t, StatusInsufficient, res.Status)
		assert.Len(t, res.ConsumedItems, 2)
		assert.False(t, math.IsNaN(res.ShortfallQuantity) || math.IsInf(res.ShortfallQuantity, 0))
		assert.Equal(t, 0.0, store.get("small"))
		assert.Equal(t, 0.0, store.get("big"))
	})

	t.Run("conversion overflow is no conversion", func(t *testing.T) {
		lot := pantry.Lot{ID: "milk", ProductName: "Milk", Quantity: 1000, Unit: "ml"}
		store := newFakeStore(lot)
		res, err := NewPlanner(WithLotStore(store)).Consume(ctx, pantry.Requirement{Name: "milk", Quantity: pantry.Quantity(1e308), Unit: "cup"}, []pantry.Lot{lot})
		require.NoError(t, err)

		assert.Equal(t, StatusInsufficient, res.Status)
		assert.Empty(t, res.ConsumedItems)
		assert.Contains(t, res.Warnings, "No conversion available between cup and ml.")
		assert.Equal(t, 1000.0, store.get("milk"))
	})
}

func TestPlanner_Consume_MissingUnits(t *testing.T) {
	lot := pantry.Lot{ID: "salt", ProductName: "Salt", Quantity: 5}
	store := newFakeStore(lot)
	res, err := NewPlanner(WithLotStore(store)).Consume(context.Background(), pantry.Requirement{Name: "salt", Quantity: pantry.Quantity(1)}, []pantry.Lot{lot})
	require.NoError(t, err)

	assert.Equal(t, StatusSatisfied, res.Status)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.ConsumedItems, 1)
	assert.Equal(t, 1.0, res.ConsumedItems[0].QuantityUsed)
	assert.Equal(t, 4.0, store.get("salt"))
}

func TestPlanner_Consume_RetriesLostRace(t *testing.T) {
	// The caller's snapshot says 500 g but another completion already took 200 g.
	lot := pantry.Lot{ID: "milk", ProductName: "Milk", Quantity: 500, Unit: "ml"}
	store := newFakeStore(pantry.Lot{ID: "milk", Quantity: 300})

	res, err := NewPlanner(WithLotStore(store)).Consume(context.Background(),
		pantry.Requirement{Name: "milk", Quantity: pantry.Quantity(400), Unit: "ml"}, []pantry.Lot{lot})
	require.NoError(t, err)

	assert.Equal(t, StatusInsufficient, res.Status)
	require.Len(t, res.ConsumedItems, 1)
	assert.Equal(t, 300.0, res.ConsumedItems[0].QuantityUsed)
	assert.Equal(t, 0.0, res.ConsumedItems[0].RemainingQuantity)
	assert.InDelta(t, 100, res.ShortfallQuantity, 1e-9)
	assert.Equal(t, 0.0, store.get("milk"))
}

func TestPlanner_Consume_StoreFailure(t *testing.T) {
	lot := pantry.Lot{ID: "milk", ProductName: "Milk", Quantity: 500, Unit: "ml"}
	store := newFakeStore(lot)
	store.err = errors.New("disk full")

	_, err := NewPlanner(WithLotStore(store)).Consume(context.Background(),
		pantry.Requirement{Name: "milk", Quantity: pantry.Quantity(100), Unit: "ml"}, []pantry.Lot{lot})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.NotErrorIs(t, err, ErrInvalidRequirement)
}

func TestPlanner_Consume_Estimator(t *testing.T) {
	ctx := context.Background()
	req := pantry.Requirement{Name: "eggs", Quantity: pantry.Quantity(2), Unit: "each"}

	t.Run("estimated conversion is tagged", func(t *testing.T) {
		est := mock.NewEstimator()
		lot := pantry.Lot{ID: "liquid", ProductName: "Eggs", Quantity: 500, Unit: "gram"}
		res, err := NewPlanner(WithEstimator(est, time.Second)).Consume(ctx, req, []pantry.Lot{lot})
		require.NoError(t, err)

		assert.Equal(t, StatusSatisfied, res.Status)
		require.Len(t, res.ConsumedItems, 1)
		assert.Equal(t, ProvenanceEstimated, res.ConsumedItems[0].Provenance)
		assert.InDelta(t, 100, res.ConsumedItems[0].QuantityUsed, 1e-9)
		assert.LessOrEqual(t, res.Confidence, MaxEstimateConfidence)
		assert.True(t, res.Estimated())
	})

	t.Run("called once per requirement", func(t *testing.T) {
		est := mock.NewEstimator()
		lots := []pantry.Lot{
			{ID: "a", ProductName: "Eggs", Quantity: 60, Unit: "gram"},
			{ID: "b", ProductName: "Eggs", Quantity: 30, Unit: "ml"},
			{ID: "c", ProductName: "Eggs", Quantity: 500, Unit: "gram"},
		}
		res, err := NewPlanner(WithEstimator(est, time.Second)).Consume(ctx, req, lots)
		require.NoError(t, err)

		assert.Len(t, est.Calls(), 1)
		assert.Equal(t, StatusSatisfied, res.Status)
		require.Len(t, res.ConsumedItems, 2)
		assert.InDelta(t, 60, res.ConsumedItems[0].QuantityUsed, 1e-9)
		assert.Equal(t, "c", res.ConsumedItems[1].LotID)
		assert.InDelta(t, 40, res.ConsumedItems[1].QuantityUsed, 1e-9)
		assert.Contains(t, res.Warnings, "No conversion available between each and ml.")
	})

	t.Run("failure skips lots with a distinct warning", func(t *testing.T) {
		est := mock.Failing(errors.New("model offline"))
		lots := []pantry.Lot{
			{ID: "a", ProductName: "Eggs", Quantity: 60, Unit: "gram"},
			{ID: "b", ProductName: "Eggs", Quantity: 500, Unit: "gram"},
		}
		res, err := NewPlanner(WithEstimator(est, time.Second)).Consume(ctx, req, lots)
		require.NoError(t, err)

		assert.Len(t, est.Calls(), 1)
		assert.Equal(t, StatusInsufficient, res.Status)
		assert.Empty(t, res.ConsumedItems)
		assert.Contains(t, res.Warnings, "Estimator unavailable for eggs between each and gram.")
		assert.Contains(t, res.Warnings, "No conversion available between each and gram.")
		assert.Len(t, res.Warnings, 2)
	})

	t.Run("timeout is treated as no answer", func(t *testing.T) {
		lot := pantry.Lot{ID: "a", ProductName: "Eggs", Quantity: 500, Unit: "gram"}
		res, err := NewPlanner(WithEstimator(blockingEstimator{}, 10*time.Millisecond)).Consume(ctx, req, []pantry.Lot{lot})
		require.NoError(t, err)
		assert.Equal(t, StatusInsufficient, res.Status)
		assert.Contains(t, res.Warnings, "Estimator unavailable for eggs between each and gram.")
	})
}

type blockingEstimator struct{}

func (blockingEstimator) Estimate(ctx context.Context, _ estimator.Request) (estimator.Estimate, error) {
	<-ctx.Done()
	return estimator.Estimate{}, ctx.Err()
}

func TestPlanner_Consume_NeverOverdraws(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	unitsByLot := []string{"g", "kg", "oz", "lb"}
	p := func(store *fakeStore) *Planner { return NewPlanner(WithLotStore(store)) }

	for i := 0; i < 200; i++ {
		var lots []pantry.Lot
		for j := 0; j < 1+rng.Intn(4); j++ {
			lots = append(lots, pantry.Lot{
				ID:          string(rune('a' + j)),
				ProductName: "Rice",
				Quantity:    float64(rng.Intn(5000)) / 10,
				Unit:        unitsByLot[rng.Intn(len(unitsByLot))],
			})
		}
		store := newFakeStore(lots...)
		want := float64(rng.Intn(20000)) / 10

		res, err := p(store).Consume(context.Background(), pantry.Requirement{Name: "rice", Quantity: &want, Unit: "g"}, lots)
		require.NoError(t, err)

		used := map[string]float64{}
		for _, it := range res.ConsumedItems {
			assert.GreaterOrEqual(t, it.QuantityUsed, 0.0)
			assert.GreaterOrEqual(t, it.RemainingQuantity, 0.0)
			used[it.LotID] += it.QuantityUsed
		}
		for _, l := range lots {
			assert.GreaterOrEqual(t, store.get(l.ID), 0.0)
			assert.LessOrEqual(t, used[l.ID], l.Quantity+1e-9)
		}
	}
}

func TestPlanner_Consume_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")
	p := NewPlanner(WithTracer(tracer))

	_, err := p.Consume(context.Background(), pantry.Requirement{Name: "salt", Quantity: pantry.Quantity(5), Unit: "g"}, nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "consume", spans[0].Name())
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "salt", attrs["ingredient"])
	assert.Equal(t, string(StatusMissing), attrs["status"])
}
