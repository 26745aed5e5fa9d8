/*
Package catalog describes the resources the admin UI may write to.

PURPOSE:
  A catalog is loaded once at startup (YAML file or the built-in default)
  and is read-only afterwards. It serves three collaborators of the write
  path:

    Resolve:   resource name -> document.Resource (document.ResourceResolver)
    Process:   numeric-string coercion of declared fields (document.PayloadProcessor)
    ToStorage: drop omitted fields, normalize values (document.StorageTransformer)

FILE FORMAT:
  resources:
    - name: purchases
      collection: purchases
      numeric: [totalCost, quantity, previousTotalCost, previousQuantity]
      omit: [unitCostPreview]

  collection defaults to name.

SEE ALSO:
  - document/pipeline.go: Where these collaborators run
*/
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-provider/document"
	"gopkg.in/yaml.v3"
)

var (
	_ document.ResourceResolver   = (*Catalog)(nil)
	_ document.PayloadProcessor   = (*Catalog)(nil)
	_ document.StorageTransformer = (*Catalog)(nil)
)

// ResourceSpec is one catalog entry.
type ResourceSpec struct {
	Name       string   `yaml:"name"`
	Collection string   `yaml:"collection,omitempty"`
	Numeric    []string `yaml:"numeric,omitempty"`
	Omit       []string `yaml:"omit,omitempty"`
}

// File is the on-disk catalog layout.
type File struct {
	Resources []ResourceSpec `yaml:"resources"`
}

// Catalog is an immutable resource index.
type Catalog struct {
	resources map[string]document.Resource
}

// New builds a catalog. Names must be unique and non-empty.
func New(specs []ResourceSpec) (*Catalog, error) {
	c := &Catalog{resources: make(map[string]document.Resource, len(specs))}
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("resource %d: name is required", i)
		}
		if _, dup := c.resources[s.Name]; dup {
			return nil, fmt.Errorf("resource %q declared twice", s.Name)
		}
		collection := s.Collection
		if collection == "" {
			collection = s.Name
		}
		c.resources[s.Name] = document.Resource{
			Name:          s.Name,
			Collection:    collection,
			NumericFields: append([]string(nil), s.Numeric...),
			Omit:          append([]string(nil), s.Omit...),
		}
	}
	return c, nil
}

// Parse reads a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Resources)
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// DefaultSpecs describes the stock pages: products plus the three workflow
// record collections.
func DefaultSpecs() []ResourceSpec {
	return []ResourceSpec{
		{
			Name: "products",
			Numeric: []string{
				document.AggTotalCost, document.AggTotalQuantityPurchased, document.AggCurrentUnitCost,
				document.AggTotalPrice, document.AggTotalQuantitySold, document.AggTotalQuantityOffset,
			},
		},
		{
			Name: "purchases",
			Numeric: []string{
				document.FieldTotalCost, document.FieldQuantity,
				document.FieldPreviousTotalCost, document.FieldPreviousQuantity,
			},
		},
		{
			Name: "sales",
			Numeric: []string{
				document.FieldTotalPrice, document.FieldQuantity,
				document.FieldPreviousTotalPrice, document.FieldPreviousQuantity,
			},
		},
		{
			Name:       "stockCheck",
			Collection: "stockChecks",
			Numeric: []string{
				document.FieldQuantityOffset, document.FieldPreviousQuantityOffset,
			},
		},
	}
}

// Default is the catalog built from DefaultSpecs.
func Default() *Catalog {
	c, err := New(DefaultSpecs())
	if err != nil {
		panic(err)
	}
	return c
}

// Names lists the catalogued resource names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.resources))
	for n := range c.resources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve implements document.ResourceResolver.
func (c *Catalog) Resolve(_ context.Context, name string) (document.Resource, error) {
	r, ok := c.resources[name]
	if !ok {
		return document.Resource{}, &document.ResourceNotFoundError{Resource: name}
	}
	return r, nil
}

// Process implements document.PayloadProcessor: the resource's numeric
// fields are parsed into decimals. A declared numeric field holding
// something unparseable is rejected.
func (c *Catalog) Process(_ context.Context, r document.Resource, _ string, data document.Fields) (document.Fields, error) {
	out := data.Clone()
	for _, name := range r.NumericFields {
		v, ok := out[name]
		if !ok || v == nil {
			continue
		}
		d, err := document.ToDecimal(v)
		if err != nil {
			return nil, &document.ValidationError{Field: name, Reason: "must be numeric (" + err.Error() + ")"}
		}
		out[name] = d
	}
	return out, nil
}

// ToStorage implements document.StorageTransformer. Decimals become exact
// JSON numbers and times become RFC 3339 UTC strings.
func (c *Catalog) ToStorage(resourceName string, fields document.Fields, _ string) document.Fields {
	var out document.Fields
	if r, ok := c.resources[resourceName]; ok {
		out = fields.Without(r.Omit...)
	} else {
		out = fields.Clone()
	}
	for k, v := range out {
		switch t := v.(type) {
		case decimal.Decimal:
			out[k] = document.NumberValue(t)
		case time.Time:
			out[k] = t.UTC().Format(time.RFC3339Nano)
		}
	}
	return out
}
