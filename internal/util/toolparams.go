package util

import (
	"reflect"
	"strconv"
	"strings"
)

// ToolParameters derives JSON-schema properties and the required field list
// from a struct using reflection. Field names follow json tags; descriptions
// come from the description tag. Non-pointer fields without omitempty are
// required unless tagged required:"false".
func ToolParameters(paramStruct any) (map[string]any, []string) {
	props := map[string]any{}
	if paramStruct == nil {
		return props, nil
	}

	t := reflect.TypeOf(paramStruct)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return props, nil
	}

	var required []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		omitempty := false
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			if jsonTag == "-" {
				continue
			}
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitempty = true
				}
			}
		}

		isRequired := field.Type.Kind() != reflect.Ptr && !omitempty
		switch field.Tag.Get("required") {
		case "false":
			isRequired = false
		case "true":
			isRequired = true
		}

		schema := generateSchemaForType(field.Type)
		if description := field.Tag.Get("description"); description != "" {
			schema["description"] = description
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			schema["enum"] = enumValues(field.Type, enum)
		}

		props[name] = schema
		if isRequired {
			required = append(required, name)
		}
	}
	return props, required
}

// enumValues parses a comma-separated enum tag into values of the field's
// kind. Entries that do not parse stay strings.
func enumValues(t reflect.Type, tag string) []any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	parts := strings.Split(tag, ",")
	items := make([]any, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		items[i] = p
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if v, err := strconv.ParseInt(p, 10, 64); err == nil {
				items[i] = v
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v, err := strconv.ParseUint(p, 10, 64); err == nil {
				items[i] = v
			}
		case reflect.Float32, reflect.Float64:
			if v, err := strconv.ParseFloat(p, 64); err == nil {
				items[i] = v
			}
		case reflect.Bool:
			if v, err := strconv.ParseBool(p); err == nil {
				items[i] = v
			}
		}
	}
	return items
}

// generateSchemaForType generates a JSON schema fragment for a given Go type
func generateSchemaForType(t reflect.Type) map[string]any {
	schema := make(map[string]any)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
		schema["nullable"] = true
	}

	switch t.Kind() {
	case reflect.String:
		schema["type"] = "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		schema["type"] = "integer"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		schema["type"] = "integer"
		schema["minimum"] = 0
	case reflect.Float32, reflect.Float64:
		schema["type"] = "number"
	case reflect.Bool:
		schema["type"] = "boolean"
	case reflect.Array, reflect.Slice:
		schema["type"] = "array"
		if t.Elem().Kind() != reflect.Interface {
			schema["items"] = generateSchemaForType(t.Elem())
		}
	case reflect.Map:
		schema["type"] = "object"
	case reflect.Struct:
		for k, v := range structSchema(t) {
			schema[k] = v
		}
	case reflect.Interface:
		schema["type"] = "object"
	default:
		schema["type"] = "string"
	}

	return schema
}

// structSchema expands nested structs inline.
func structSchema(t reflect.Type) map[string]any {
	m := reflectSchema(t, true)
	if _, ok := m["type"]; !ok {
		m["type"] = "object"
	}
	return m
}
