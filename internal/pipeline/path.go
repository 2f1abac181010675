package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Causes of a FieldResolutionError, for use with errors.Is
var (
	ErrMissingKey      = errors.New("missing key")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrTypeMismatch    = errors.New("unexpected value type")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// FieldResolutionError reports a schema field that could not be resolved in a record.
type FieldResolutionError struct {
	Record int    // position of the record in the batch
	Field  string // output feature name
	Path   string
	Err    error
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("record %d: field %s (%s): %v", e.Record, e.Field, e.Path, e.Err)
}

func (e *FieldResolutionError) Unwrap() error {
	return e.Err
}

// Step is one hop of a Path: a mapping key or a list index.
type Step struct {
	key     string
	index   int
	isIndex bool
}

func (s Step) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.key
}

// Path navigates a nested record from its root.
type Path []Step

// Keys builds a path made of mapping keys only.
func Keys(keys ...string) Path {
	p := make(Path, 0, len(keys))
	for _, k := range keys {
		p = append(p, Step{key: k})
	}
	return p
}

// Key returns a copy of p extended by a mapping key.
func (p Path) Key(k string) Path {
	return append(p[:len(p):len(p)], Step{key: k})
}

// At returns a copy of p extended by a list index.
func (p Path) At(i int) Path {
	return append(p[:len(p):len(p)], Step{index: i, isIndex: true})
}

// String renders the path as data.consumerfullcredit.employmenthistory[4].occupation
func (p Path) String() string {
	if len(p) == 0 {
		return "$"
	}
	var b strings.Builder
	for i, s := range p {
		if i > 0 && !s.isIndex {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// MarshalJSON encodes the path in its dotted string form.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// resolve walks root along p. Every step must exist: a missing key, an index
// outside the list or a scalar where a container is expected is an error.
func resolve(root interface{}, p Path) (interface{}, error) {
	cur := root
	for i, step := range p {
		at := p[:i].String()
		if step.isIndex {
			list, ok := cur.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: %s is %s, want list", ErrTypeMismatch, at, typeName(cur))
			}
			if step.index < 0 || step.index >= len(list) {
				return nil, fmt.Errorf("%w: %s has %d entries, want index %d", ErrIndexOutOfRange, at, len(list), step.index)
			}
			cur = list[step.index]
			continue
		}

		obj, ok := asObject(cur)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %s, want object", ErrTypeMismatch, at, typeName(cur))
		}
		val, ok := obj[step.key]
		if !ok {
			return nil, fmt.Errorf("%w %q under %s", ErrMissingKey, step.key, at)
		}
		cur = val
	}
	return cur, nil
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	default:
		return "number"
	}
}
