package pipeline

import (
	"fmt"
	"strings"
)

// ValidateSchema checks a list of field specs before it is used for extraction.
func ValidateSchema(fields []FieldSpec) error {
	if len(fields) == 0 {
		return fmt.Errorf("schema has no fields")
	}

	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		if err := validateField(f); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		if prev, ok := seen[f.Name]; ok {
			return fmt.Errorf("field %d: duplicate name %s (first defined at %d)", i, f.Name, prev)
		}
		seen[f.Name] = i
	}
	return nil
}

func validateField(f FieldSpec) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("missing name")
	}

	switch f.Kind {
	case FieldLookup, FieldCount:
		if len(f.Path) == 0 {
			return fmt.Errorf("%s: %s field needs a path", f.Name, f.Kind)
		}
		if f.Key != "" {
			return fmt.Errorf("%s: %s field takes no key", f.Name, f.Kind)
		}
	case FieldPresence, FieldCurrencySum:
		// an empty path addresses the record root
		if f.Key == "" {
			return fmt.Errorf("%s: %s field needs a key", f.Name, f.Kind)
		}
	default:
		return fmt.Errorf("%s: unknown kind %q", f.Name, f.Kind)
	}

	for _, step := range f.Path {
		if step.isIndex && step.index < 0 {
			return fmt.Errorf("%s: negative index in path %s", f.Name, f.Path)
		}
		if !step.isIndex && step.key == "" {
			return fmt.Errorf("%s: empty key in path %s", f.Name, f.Path)
		}
	}
	return nil
}
