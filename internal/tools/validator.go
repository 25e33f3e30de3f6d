package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/alessiogrespi/llmtoolkit/internal/core"
)

// Validator validates tool arguments before execution.
type Validator interface {
	Validate(args map[string]any, spec core.ToolSpec) error
}

// DefaultValidator checks required fields, primitive JSON types and enums.
type DefaultValidator struct{}

func (DefaultValidator) Validate(args map[string]any, spec core.ToolSpec) error {
	for _, field := range spec.Required {
		if _, exists := args[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	for key, value := range args {
		def, ok := spec.Parameters[key].(map[string]any)
		if !ok {
			continue
		}
		if expected, _ := def["type"].(string); expected != "" {
			if value == nil && def["nullable"] == true {
				continue
			}
			if err := validateType(value, expected); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
		}
		if enum, ok := def["enum"].([]any); ok && len(enum) > 0 {
			if !inEnum(value, enum) {
				return fmt.Errorf("field %s: value %v is not one of %v", key, value, enum)
			}
		}
	}
	return nil
}

func validateType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	case "null":
		if value == nil {
			return nil
		}
	default:
		return nil
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

// inEnum compares numbers by value, so 1 matches float64(1), and everything
// else structurally.
func inEnum(value any, enum []any) bool {
	for _, e := range enum {
		if isNumber(e) && isNumber(value) {
			a, aok := toFloat(e)
			b, bok := toFloat(value)
			if aok && bok && a == b {
				return true
			}
			continue
		}
		if reflect.DeepEqual(e, value) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case float64:
		return math.Trunc(v) == v
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
