package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"credit-feature-pipeline/internal/model"
)

// resolveField derives the value of one field spec from a record root.
func resolveField(root interface{}, f FieldSpec) (interface{}, error) {
	switch f.Kind {
	case FieldLookup:
		return resolve(root, f.Path)
	case FieldPresence:
		return presenceFlag(root, f.Path, f.Key)
	case FieldCount:
		return countItems(root, f.Path)
	case FieldCurrencySum:
		return sumCurrency(root, f.Path, f.Key)
	default:
		return nil, fmt.Errorf("unknown field kind: %s", f.Kind)
	}
}

// presenceFlag is 1 when key exists in the object at parent, whatever its value.
// The parent itself has to resolve.
func presenceFlag(root interface{}, parent Path, key string) (int, error) {
	val, err := resolve(root, parent)
	if err != nil {
		return 0, err
	}
	obj, ok := asObject(val)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %s, want object", ErrTypeMismatch, parent, typeName(val))
	}
	if _, ok := obj[key]; ok {
		return 1, nil
	}
	return 0, nil
}

func countItems(root interface{}, p Path) (int, error) {
	val, err := resolve(root, p)
	if err != nil {
		return 0, err
	}
	list, ok := val.([]interface{})
	if !ok {
		return 0, fmt.Errorf("%w: %s is %s, want list", ErrTypeMismatch, p, typeName(val))
	}
	return len(list), nil
}

// sumCurrency adds up key across the list at p. Elements without key are
// skipped; an empty list sums to zero.
func sumCurrency(root interface{}, p Path, key string) (model.Decimal, error) {
	total := model.NewDecimalFromInt64(0)

	val, err := resolve(root, p)
	if err != nil {
		return total, err
	}
	list, ok := val.([]interface{})
	if !ok {
		return total, fmt.Errorf("%w: %s is %s, want list", ErrTypeMismatch, p, typeName(val))
	}

	for i, item := range list {
		at := p.At(i)
		obj, ok := asObject(item)
		if !ok {
			return total, fmt.Errorf("%w: %s is %s, want object", ErrTypeMismatch, at, typeName(item))
		}
		raw, ok := obj[key]
		if !ok {
			continue
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return total, fmt.Errorf("%s: %w", at.Key(key), err)
		}
		total, err = total.Add(amount)
		if err != nil {
			return total, fmt.Errorf("%s: %w", at.Key(key), err)
		}
	}
	return total, nil
}

// parseAmount turns a currency-formatted value such as "$1,200.50" into an
// exact decimal by dropping everything except ASCII digits and '.'.
func parseAmount(raw interface{}) (model.Decimal, error) {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		text = strconv.Itoa(v)
	default:
		return model.Decimal{}, fmt.Errorf("%w: amount is %s", ErrTypeMismatch, typeName(raw))
	}

	cleaned := cleanAmount(text)
	d, err := model.NewDecimal(cleaned)
	if err != nil {
		return model.Decimal{}, fmt.Errorf("%w %q: %v", ErrInvalidAmount, text, err)
	}
	return d, nil
}

func cleanAmount(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
}
