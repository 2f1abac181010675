package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FeatureRow is the flat output for one raw record. Values are kept in
// schema order and the row always carries every schema column.
type FeatureRow struct {
	names  []string
	values []interface{}
}

// NewFeatureRow pairs column names with their values. The names slice is
// shared, not copied; callers must treat it as read-only.
func NewFeatureRow(names []string, values []interface{}) (FeatureRow, error) {
	if len(names) != len(values) {
		return FeatureRow{}, fmt.Errorf("row has %d values for %d columns", len(values), len(names))
	}
	return FeatureRow{names: names, values: values}, nil
}

func (r FeatureRow) Len() int {
	return len(r.names)
}

// Names returns the column names in order.
func (r FeatureRow) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Values returns the values in column order.
func (r FeatureRow) Values() []interface{} {
	out := make([]interface{}, len(r.values))
	copy(out, r.values)
	return out
}

// Get looks up a value by column name.
func (r FeatureRow) Get(name string) (interface{}, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// MarshalJSON encodes the row as a JSON object whose keys keep column order.
func (r FeatureRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object produced by MarshalJSON, keeping key order.
// Numbers come back as json.Number so their text is preserved.
func (r *FeatureRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("feature row must be a JSON object")
	}

	var names []string
	var values []interface{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in feature row", tok)
		}
		var val interface{}
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		names = append(names, name)
		values = append(values, val)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	r.names = names
	r.values = values
	return nil
}
