package storage

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantrycook/pantry"
)

func newTestSQLiteStore(t *testing.T) *SQLiteLotStore {
	t.Helper()
	store, err := NewSQLiteLotStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteLotStore(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	yogurt, err := store.Add(ctx, pantry.Lot{ProductName: "Greek Yogurt", Quantity: 500, Unit: "g", DaysLeft: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, yogurt.ID)
	_, err = store.Add(ctx, pantry.Lot{ID: "salt", ProductName: "Salt", Quantity: 1, Unit: "kg"})
	require.NoError(t, err)

	lots, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, yogurt, lots[0])

	left, err := store.Decrement(ctx, yogurt.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, 300.0, left)

	_, err = store.Decrement(ctx, yogurt.ID, 301)
	var stockErr *pantry.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 300.0, stockErr.Available)

	left, err = store.Decrement(ctx, yogurt.ID, 300)
	require.NoError(t, err)
	assert.Equal(t, 0.0, left)

	_, err = store.Decrement(ctx, yogurt.ID, math.NaN())
	assert.Error(t, err)
	_, err = store.Add(ctx, pantry.Lot{ProductName: "Rice", Quantity: math.Inf(1), Unit: "g"})
	assert.Error(t, err)

	_, err = store.Decrement(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrLotNotFound)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrLotNotFound)

	_, err = store.Add(ctx, pantry.Lot{ID: "salt", ProductName: "Salt", Quantity: 1, Unit: "kg"})
	assert.Error(t, err, "duplicate id")
}

func TestSQLiteLotStore_ConcurrentDecrement(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	_, err := store.Add(ctx, pantry.Lot{ID: "rice", ProductName: "Rice", Quantity: 10, Unit: "cup"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Decrement(ctx, "rice", 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, pantry.ErrInsufficientStock)
	}
	assert.Equal(t, 10, ok)

	lot, err := store.Get(ctx, "rice")
	require.NoError(t, err)
	assert.Equal(t, 0.0, lot.Quantity)
}
