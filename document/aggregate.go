/*
aggregate.go - Product roll-up rules per stock workflow

PURPOSE:
  Each product document carries running totals derived from the records
  written by the purchases, sales and stock-check pages. A write tagged with
  one of those pages must adjust the matching totals in the same batch.

RULES:
  purchases:
    totalCost              += Δ totalCost
    totalQuantityPurchased += Δ quantity
    currentUnitCost         = totalCost / quantity   (record values, set not increment)
  sales:
    totalPrice        += Δ totalPrice
    totalQuantitySold += Δ quantity
  stockCheck:
    totalQuantityOffset += Δ quantityOffset

  Δ is the absolute value on create and current - previous on update. The
  previous values travel on the update payload (previousTotalCost, ...) and
  are stripped before the record is stored.

INCREMENTS:
  Totals are applied as store-side increments so concurrent writes to the
  same product compose without locking. Only currentUnitCost is a set.
*/
package document

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// WORKFLOW KIND
// =============================================================================

// WorkflowKind selects which roll-up rule applies to a write.
type WorkflowKind string

const (
	WorkflowPurchases  WorkflowKind = "purchases"
	WorkflowSales      WorkflowKind = "sales"
	WorkflowStockCheck WorkflowKind = "stockCheck"
)

// ParseWorkflowKind maps an admin UI page name to a WorkflowKind.
func ParseWorkflowKind(page string) (WorkflowKind, error) {
	switch k := WorkflowKind(page); k {
	case WorkflowPurchases, WorkflowSales, WorkflowStockCheck:
		return k, nil
	default:
		return "", &ValidationError{Field: "meta.custom.page", Reason: "unknown workflow " + page}
	}
}

// Record and roll-up field names.
const (
	FieldProductID = "productId"

	FieldTotalCost      = "totalCost"
	FieldQuantity       = "quantity"
	FieldTotalPrice     = "totalPrice"
	FieldQuantityOffset = "quantityOffset"

	FieldPreviousTotalCost      = "previousTotalCost"
	FieldPreviousQuantity       = "previousQuantity"
	FieldPreviousTotalPrice     = "previousTotalPrice"
	FieldPreviousQuantityOffset = "previousQuantityOffset"

	AggTotalCost              = "totalCost"
	AggTotalQuantityPurchased = "totalQuantityPurchased"
	AggCurrentUnitCost        = "currentUnitCost"
	AggTotalPrice             = "totalPrice"
	AggTotalQuantitySold      = "totalQuantitySold"
	AggTotalQuantityOffset    = "totalQuantityOffset"
)

// TransientFields returns the previous-value fields a workflow consumes.
// They never reach storage.
func (k WorkflowKind) TransientFields() []string {
	switch k {
	case WorkflowPurchases:
		return []string{FieldPreviousTotalCost, FieldPreviousQuantity}
	case WorkflowSales:
		return []string{FieldPreviousTotalPrice, FieldPreviousQuantity}
	case WorkflowStockCheck:
		return []string{FieldPreviousQuantityOffset}
	default:
		return nil
	}
}

// =============================================================================
// AGGREGATE MUTATION
// =============================================================================

// AggregateMutation is the change applied to one product document.
type AggregateMutation struct {
	Collection string
	ID         string

	// Increments are added store-side to the current values.
	Increments map[string]decimal.Decimal

	// Sets overwrite values.
	Sets map[string]decimal.Decimal
}

// BuildAggregate computes the product roll-up mutation for a record tagged
// with kind, plus the transient fields to strip from the stored record.
func BuildAggregate(kind WorkflowKind, fields Fields, mode Mode) (*AggregateMutation, []string, error) {
	productID := FormatID(fields[FieldProductID])
	if productID == "" {
		return nil, nil, &ValidationError{Field: FieldProductID, Reason: "required"}
	}

	m := &AggregateMutation{
		Collection: ProductsCollection,
		ID:         productID,
		Increments: make(map[string]decimal.Decimal),
		Sets:       make(map[string]decimal.Decimal),
	}

	switch kind {
	case WorkflowPurchases:
		cost, err := fieldDelta(fields, mode, FieldTotalCost, FieldPreviousTotalCost)
		if err != nil {
			return nil, nil, err
		}
		qty, err := fieldDelta(fields, mode, FieldQuantity, FieldPreviousQuantity)
		if err != nil {
			return nil, nil, err
		}
		unitCost, err := unitCost(fields)
		if err != nil {
			return nil, nil, err
		}
		m.Increments[AggTotalCost] = cost
		m.Increments[AggTotalQuantityPurchased] = qty
		m.Sets[AggCurrentUnitCost] = unitCost

	case WorkflowSales:
		price, err := fieldDelta(fields, mode, FieldTotalPrice, FieldPreviousTotalPrice)
		if err != nil {
			return nil, nil, err
		}
		qty, err := fieldDelta(fields, mode, FieldQuantity, FieldPreviousQuantity)
		if err != nil {
			return nil, nil, err
		}
		m.Increments[AggTotalPrice] = price
		m.Increments[AggTotalQuantitySold] = qty

	case WorkflowStockCheck:
		offset, err := fieldDelta(fields, mode, FieldQuantityOffset, FieldPreviousQuantityOffset)
		if err != nil {
			return nil, nil, err
		}
		m.Increments[AggTotalQuantityOffset] = offset

	default:
		return nil, nil, &ValidationError{Field: "meta.custom.page", Reason: "unknown workflow " + string(kind)}
	}

	return m, kind.TransientFields(), nil
}

// unitCost uses the record's own totalCost and quantity, not the product's
// running totals.
func unitCost(fields Fields) (decimal.Decimal, error) {
	cost, err := NumberField(fields, FieldTotalCost)
	if err != nil {
		return decimal.Zero, err
	}
	qty, err := NumberField(fields, FieldQuantity)
	if err != nil {
		return decimal.Zero, err
	}
	if qty.IsZero() {
		return decimal.Zero, &ValidationError{Field: FieldQuantity, Reason: "must be non-zero to derive unit cost"}
	}
	return cost.Div(qty), nil
}
