package model

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an exact base-10 number used for monetary features.
type Decimal struct {
	value apd.Decimal
}

func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	_, _, err := d.SetString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("invalid decimal: %q is not finite", s)
	}
	return Decimal{value: d}, nil
}

func NewDecimalFromInt64(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d}
}

// String renders the value in plain notation, never with an exponent.
func (d Decimal) String() string {
	return d.value.Text('f')
}

func (d Decimal) IsZero() bool {
	return d.value.IsZero()
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}

// Add returns the sum of d and other. Sums are exact up to 34 significant
// digits and rounded beyond that.
func (d Decimal) Add(other Decimal) (Decimal, error) {
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	if _, err := ctx.Add(&result, &d.value, &other.value); err != nil {
		return Decimal{}, fmt.Errorf("add %s and %s: %w", d, other, err)
	}
	return Decimal{value: result}, nil
}

// MarshalJSON writes the decimal as a bare JSON number with its exact digits.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}
