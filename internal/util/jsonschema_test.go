package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string `json:"city"`
}

type person struct {
	Name    string   `json:"name"`
	Age     int      `json:"age,omitempty"`
	Home    address  `json:"home"`
	Aliases []string `json:"aliases"`
}

func TestGenerateJSONSchema(t *testing.T) {
	var p *person
	schema := GenerateJSONSchema(p)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(schema), &m))
	assert.Equal(t, "object", m["type"])
	assert.NotContains(t, m, "$schema")
	assert.NotContains(t, m, "$ref")
	assert.NotContains(t, m, "$defs")

	props := m["properties"].(map[string]any)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "age")
	home := props["home"].(map[string]any)
	assert.Equal(t, "object", home["type"])
	assert.Contains(t, home["properties"], "city")
	assert.ElementsMatch(t, []any{"name", "home", "aliases"}, m["required"])
}

func TestGenerateJSONSchemaNonStruct(t *testing.T) {
	var list *[]address
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(GenerateJSONSchema(list)), &m))
	assert.Equal(t, "array", m["type"])
	assert.Equal(t, "{}", GenerateJSONSchema(nil))
}

func TestIsStringType(t *testing.T) {
	assert.True(t, IsStringType[string]())
	assert.False(t, IsStringType[[]byte]())
	assert.False(t, IsStringType[person]())
}
