package sqlite_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-provider/document"
	"github.com/warp/stock-provider/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func num(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	d, err := document.ToDecimal(v)
	require.NoError(t, err)
	return d
}

// =============================================================================
// SINGLE WRITES
// =============================================================================

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Create(ctx, "widgets", "w1", document.Fields{
		"name":  "gear",
		"price": decimal.RequireFromString("9.95"),
		"tags":  []string{"a", "b"},
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "widgets", "w1")
	require.NoError(t, err)
	assert.Equal(t, "gear", got["name"])
	assert.Equal(t, json.Number("9.95"), got["price"], "decimals stored as JSON numbers")
	assert.Equal(t, []any{"a", "b"}, got["tags"])

	_, err = store.Get(ctx, "widgets", "nope")
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStore_CreateIsCreateOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "widgets", "w1", document.Fields{"name": "a"}))
	err := store.Create(ctx, "widgets", "w1", document.Fields{"name": "b"})
	assert.ErrorIs(t, err, document.ErrDocumentExists)

	// Same id in another collection is fine
	assert.NoError(t, store.Create(ctx, "gadgets", "w1", document.Fields{}))
}

func TestStore_Exists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "widgets", "w1", document.Fields{}))

	ok, err := store.Exists(ctx, "widgets", "w1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "widgets", "w2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_UpdateMergesFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "widgets", "w1", document.Fields{"name": "a", "size": "L"}))

	require.NoError(t, store.Update(ctx, "widgets", "w1", document.Fields{"name": "b", "color": "red"}))

	got, err := store.Get(ctx, "widgets", "w1")
	require.NoError(t, err)
	assert.Equal(t, document.Fields{"name": "b", "size": "L", "color": "red"}, got)
}

func TestStore_UpdateReplacesObjectsAndKeepsNulls(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "widgets", "w1", document.Fields{
		"attachment": map[string]any{"src": "a.png", "title": "A"},
		"note":       "keep",
	}))

	require.NoError(t, store.Update(ctx, "widgets", "w1", document.Fields{
		"attachment": map[string]any{"src": "b.png"},
		"note":       nil,
		"price":      decimal.RequireFromString("2.50"),
	}))

	got, err := store.Get(ctx, "widgets", "w1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"src": "b.png"}, got["attachment"])
	require.Contains(t, got, "note")
	assert.Nil(t, got["note"])
	assert.Equal(t, json.Number("2.5"), got["price"])
}

func TestStore_UpdateManyFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "widgets", "w1", document.Fields{}))

	fields := document.Fields{}
	for i := 0; i < 150; i++ {
		fields[fmt.Sprintf("f%03d", i)] = i
	}
	require.NoError(t, store.Update(ctx, "widgets", "w1", fields))

	got, err := store.Get(ctx, "widgets", "w1")
	require.NoError(t, err)
	assert.Len(t, got, 150)
	assert.Equal(t, json.Number("149"), got["f149"])
}

func TestStore_UpdateMissing_NotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.Update(context.Background(), "widgets", "ghost", document.Fields{"name": "x"})
	assert.ErrorIs(t, err, document.ErrNotFound)
}

// =============================================================================
// BATCHES
// =============================================================================

func TestStore_Commit_IncrementsInDatabase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "products", "p1", document.Fields{"totalCost": 100, "name": "x"}))

	batch := document.NewBatch().
		Apply(&document.AggregateMutation{
			Collection: "products",
			ID:         "p1",
			Increments: map[string]decimal.Decimal{
				"totalCost":              decimal.NewFromInt(50),
				"totalQuantityPurchased": decimal.NewFromInt(12),
			},
			Sets: map[string]decimal.Decimal{"currentUnitCost": decimal.RequireFromString("12.5")},
		}).
		Create("purchases", "x1", document.Fields{"totalCost": 150})
	require.NoError(t, store.Commit(ctx, batch))

	got, err := store.Get(ctx, "products", "p1")
	require.NoError(t, err)
	assert.True(t, num(t, got["totalCost"]).Equal(decimal.NewFromInt(150)))
	assert.True(t, num(t, got["totalQuantityPurchased"]).Equal(decimal.NewFromInt(12)))
	assert.True(t, num(t, got["currentUnitCost"]).Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "x", got["name"])

	ok, err := store.Exists(ctx, "purchases", "x1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Commit_RollsBackOnFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// GIVEN: A product increment followed by a record create for a taken id
	require.NoError(t, store.Create(ctx, "products", "p1", document.Fields{"totalCost": 100}))
	require.NoError(t, store.Create(ctx, "purchases", "x1", document.Fields{}))

	batch := document.NewBatch().
		Apply(&document.AggregateMutation{
			Collection: "products",
			ID:         "p1",
			Increments: map[string]decimal.Decimal{"totalCost": decimal.NewFromInt(50)},
		}).
		Create("purchases", "x1", document.Fields{"totalCost": 50})

	// WHEN: Committing
	err := store.Commit(ctx, batch)

	// THEN: The increment did not survive
	assert.ErrorIs(t, err, document.ErrDocumentExists)
	got, err := store.Get(ctx, "products", "p1")
	require.NoError(t, err)
	assert.True(t, num(t, got["totalCost"]).Equal(decimal.NewFromInt(100)))
}

func TestStore_ConcurrentIncrementsCompose(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "products", "p1", document.Fields{"totalQuantityOffset": 0}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := document.NewBatch().Apply(&document.AggregateMutation{
				Collection: "products",
				ID:         "p1",
				Increments: map[string]decimal.Decimal{"totalQuantityOffset": decimal.NewFromInt(1)},
			})
			assert.NoError(t, store.Commit(ctx, batch))
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "products", "p1")
	require.NoError(t, err)
	assert.True(t, num(t, got["totalQuantityOffset"]).Equal(decimal.NewFromInt(20)))
}
