package util

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// GenerateJSONSchema returns the compact JSON schema of the type v points to,
// with definitions inlined so it reads standalone inside a prompt.
func GenerateJSONSchema(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "{}"
	}
	b, err := json.Marshal(reflectSchema(t, false))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// reflectSchema reflects t into a plain map, dropping the $schema and $id
// keys that providers reject inside tool parameters.
func reflectSchema(t reflect.Type, allowAdditional bool) map[string]any {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            t.Kind() == reflect.Struct,
		AllowAdditionalProperties: allowAdditional,
	}
	b, err := json.Marshal(r.ReflectFromType(t))
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

// IsStringType reports whether T is string.
func IsStringType[T any]() bool {
	var zero T
	return reflect.TypeOf(zero) == reflect.TypeOf("")
}
