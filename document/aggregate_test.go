package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-provider/document"
)

// =============================================================================
// PURCHASES
// =============================================================================

func TestBuildAggregate_Purchases_Create_UsesAbsoluteValues(t *testing.T) {
	fields := document.Fields{"productId": "p1", "totalCost": 100, "quantity": 10}

	m, transient, err := document.BuildAggregate(document.WorkflowPurchases, fields, document.ModeCreate)
	require.NoError(t, err)

	assert.Equal(t, document.ProductsCollection, m.Collection)
	assert.Equal(t, "p1", m.ID)
	assert.True(t, m.Increments["totalCost"].Equal(dec("100")))
	assert.True(t, m.Increments["totalQuantityPurchased"].Equal(dec("10")))
	assert.True(t, m.Sets["currentUnitCost"].Equal(dec("10")))
	assert.ElementsMatch(t, []string{"previousTotalCost", "previousQuantity"}, transient)
}

func TestBuildAggregate_Purchases_Update_UsesDeltas(t *testing.T) {
	// GIVEN: A purchase edited from 100/10 to 150/12
	fields := document.Fields{
		"productId":         "p1",
		"totalCost":         150,
		"quantity":          12,
		"previousTotalCost": 100,
		"previousQuantity":  10,
	}

	// WHEN: Building the roll-up for the update
	m, transient, err := document.BuildAggregate(document.WorkflowPurchases, fields, document.ModeUpdate)
	require.NoError(t, err)

	// THEN: Totals move by the delta, unit cost is recomputed from the record
	assert.True(t, m.Increments["totalCost"].Equal(dec("50")))
	assert.True(t, m.Increments["totalQuantityPurchased"].Equal(dec("2")))
	assert.True(t, m.Sets["currentUnitCost"].Equal(dec("12.5")))
	assert.Len(t, m.Increments, 2)
	assert.Len(t, m.Sets, 1)
	assert.ElementsMatch(t, []string{"previousTotalCost", "previousQuantity"}, transient)
}

func TestBuildAggregate_Purchases_Update_RequiresPreviousValues(t *testing.T) {
	fields := document.Fields{"productId": "p1", "totalCost": 150, "quantity": 12}

	_, _, err := document.BuildAggregate(document.WorkflowPurchases, fields, document.ModeUpdate)

	var verr *document.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "previousTotalCost", verr.Field)
}

func TestBuildAggregate_Purchases_ZeroQuantityRejected(t *testing.T) {
	fields := document.Fields{"productId": "p1", "totalCost": 10, "quantity": 0}

	_, _, err := document.BuildAggregate(document.WorkflowPurchases, fields, document.ModeCreate)
	assert.ErrorIs(t, err, document.ErrValidation)
}

// =============================================================================
// SALES & STOCK CHECK
// =============================================================================

func TestBuildAggregate_Sales_DoesNotFallThroughToStockCheck(t *testing.T) {
	fields := document.Fields{
		"productId":          "p1",
		"totalPrice":         "45.50",
		"quantity":           "5",
		"previousTotalPrice": "30",
		"previousQuantity":   "3",
	}

	m, transient, err := document.BuildAggregate(document.WorkflowSales, fields, document.ModeUpdate)
	require.NoError(t, err)

	assert.True(t, m.Increments["totalPrice"].Equal(dec("15.5")))
	assert.True(t, m.Increments["totalQuantitySold"].Equal(dec("2")))
	assert.NotContains(t, m.Increments, "totalQuantityOffset")
	assert.Empty(t, m.Sets)
	assert.ElementsMatch(t, []string{"previousTotalPrice", "previousQuantity"}, transient)
}

func TestBuildAggregate_StockCheck(t *testing.T) {
	create := document.Fields{"productId": "p1", "quantityOffset": -4}
	m, _, err := document.BuildAggregate(document.WorkflowStockCheck, create, document.ModeCreate)
	require.NoError(t, err)
	assert.True(t, m.Increments["totalQuantityOffset"].Equal(dec("-4")))
	assert.Len(t, m.Increments, 1)

	update := document.Fields{"productId": "p1", "quantityOffset": -1, "previousQuantityOffset": -4}
	m, transient, err := document.BuildAggregate(document.WorkflowStockCheck, update, document.ModeUpdate)
	require.NoError(t, err)
	assert.True(t, m.Increments["totalQuantityOffset"].Equal(dec("3")))
	assert.Equal(t, []string{"previousQuantityOffset"}, transient)
}

// =============================================================================
// SHARED RULES
// =============================================================================

func TestBuildAggregate_RequiresProductID(t *testing.T) {
	for _, kind := range []document.WorkflowKind{
		document.WorkflowPurchases, document.WorkflowSales, document.WorkflowStockCheck,
	} {
		_, _, err := document.BuildAggregate(kind, document.Fields{"totalCost": 1, "quantity": 1}, document.ModeCreate)

		var verr *document.ValidationError
		require.ErrorAs(t, err, &verr, "kind %s", kind)
		assert.Equal(t, "productId", verr.Field)
	}
}

func TestParseWorkflowKind(t *testing.T) {
	k, err := document.ParseWorkflowKind("stockCheck")
	require.NoError(t, err)
	assert.Equal(t, document.WorkflowStockCheck, k)

	_, err = document.ParseWorkflowKind("returns")
	assert.ErrorIs(t, err, document.ErrValidation)
}

func TestMeta_Workflow(t *testing.T) {
	var none *document.Meta
	_, ok, err := none.Workflow()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = (&document.Meta{}).Workflow()
	require.NoError(t, err)
	assert.False(t, ok)

	kind, ok, err := document.PageMeta("sales").Workflow()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, document.WorkflowSales, kind)
}
