/*
Package document provides the write path of the stock data provider.

PURPOSE:
  Translates generic "create record" and "update record" calls issued by an
  admin UI into document-store writes. When a write belongs to a stock
  workflow (purchases, sales, stock checks) the matching product roll-up
  document is adjusted in the same atomic batch as the record itself.

KEY CONCEPTS IN THIS FILE (types.go):
  - Fields: a record as a field-name -> value map
  - Resource: a named collection handle resolved once per operation
  - Mode: create or update, selects per-operation rules
  - Params/Result: the boundary shapes used by the admin UI

DESIGN PRINCIPLES:
  1. No aliasing: every transform stage returns a new Fields map
  2. Precision: numeric roll-ups use decimal.Decimal, never float64 math
  3. Explicit dependencies: the store and collaborators are injected
  4. Atomic dual write: record + roll-up are one batch or nothing

USAGE:
  p := document.NewProvider(document.Deps{...})
  res, err := p.Create(ctx, "purchases", document.CreateParams{
      Data: document.Fields{"productId": "p1", "totalCost": 150, "quantity": 12},
      Meta: document.PageMeta("purchases"),
  })

SEE ALSO:
  - aggregate.go: Roll-up mutation rules per workflow
  - pipeline.go: Record transform stages
  - coordinator.go: Single write vs atomic batch
  - provider.go: Create and Update entry points
*/
package document

import (
	"fmt"
	"sort"
	"strconv"
)

// =============================================================================
// FIELDS - One record as a field map
// =============================================================================

// Fields is a record: field name to value.
type Fields map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Without returns a copy of f minus the given keys.
func (f Fields) Without(keys ...string) Fields {
	out := f.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// With returns a copy of f with key set to value.
func (f Fields) With(key string, value any) Fields {
	out := f.Clone()
	out[key] = value
	return out
}

// Has reports whether key is present with a non-nil value.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// IDENTIFIERS & RESOURCES
// =============================================================================

// IDField is the field name the admin UI uses for a record identifier.
const IDField = "id"

// ProductsCollection holds the roll-up documents.
const ProductsCollection = "products"

// Resource is a named collection handle.
type Resource struct {
	Name       string
	Collection string

	// NumericFields are coerced to decimals by the payload processor.
	NumericFields []string

	// Omit lists fields never written to storage for this resource.
	Omit []string
}

// FormatID turns a caller-supplied identifier (string or number) into a
// document key. Returns "" for nil.
func FormatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// =============================================================================
// MODE
// =============================================================================

type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// =============================================================================
// BOUNDARY SHAPES
// =============================================================================

// Meta carries optional per-request metadata from the admin UI.
type Meta struct {
	Custom *CustomMeta `json:"custom,omitempty"`
}

// CustomMeta names the stock workflow page that issued the write.
type CustomMeta struct {
	Page string `json:"page"`
}

// PageMeta is shorthand for a Meta tagged with a workflow page.
func PageMeta(page string) *Meta {
	return &Meta{Custom: &CustomMeta{Page: page}}
}

// Workflow extracts the workflow tag. ok is false for a plain write.
// An unknown page is a validation error.
func (m *Meta) Workflow() (kind WorkflowKind, ok bool, err error) {
	if m == nil || m.Custom == nil || m.Custom.Page == "" {
		return "", false, nil
	}
	kind, err = ParseWorkflowKind(m.Custom.Page)
	if err != nil {
		return "", false, err
	}
	return kind, true, nil
}

type CreateParams struct {
	Data Fields
	Meta *Meta
}

type UpdateParams struct {
	ID   any // string or number
	Data Fields
	Meta *Meta
}

// Result is what Create, Update and GetOne hand back: the written (or read)
// representation including "id".
type Result struct {
	Data Fields `json:"data"`
}
