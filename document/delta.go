package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Delta is the correction to apply to a running total when a record's value
// moves from previous to current.
func Delta(previous, current decimal.Decimal) decimal.Decimal {
	return current.Sub(previous)
}

// ToDecimal converts a numeric field value. Strings must parse as numbers;
// empty strings and non-numeric types are rejected rather than read as zero.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, fmt.Errorf("nil decimal")
		}
		return *n, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return decimal.Zero, fmt.Errorf("empty string")
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}

// NumberField reads a required numeric field.
func NumberField(f Fields, name string) (decimal.Decimal, error) {
	if !f.Has(name) {
		return decimal.Zero, &ValidationError{Field: name, Reason: "required"}
	}
	d, err := ToDecimal(f[name])
	if err != nil {
		return decimal.Zero, &ValidationError{Field: name, Reason: "must be numeric (" + err.Error() + ")"}
	}
	return d, nil
}

// fieldDelta is the roll-up change for one counter: the absolute value on
// create, current minus previous on update.
func fieldDelta(f Fields, mode Mode, current, previous string) (decimal.Decimal, error) {
	cur, err := NumberField(f, current)
	if err != nil {
		return decimal.Zero, err
	}
	if mode == ModeCreate {
		return cur, nil
	}
	prev, err := NumberField(f, previous)
	if err != nil {
		return decimal.Zero, err
	}
	return Delta(prev, cur), nil
}
