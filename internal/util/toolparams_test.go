package util

import (
	"testing"
	"time"
)

type SimpleParams struct {
	Name     string `json:"name" description:"The name of the item"`
	Age      int    `json:"age" description:"The age of the person"`
	IsActive bool   `json:"is_active" description:"Whether the item is active"`
}

type OptionalParams struct {
	Required  string  `json:"required" required:"true"`
	Optional  *string `json:"optional" description:"Optional field"`
	Omitted   string  `json:"omitted,omitempty"`
	Forced    int     `json:"forced" required:"false"`
	Hidden    string  `json:"-"`
	NoJSONTag string  `description:"Field without json tag"`
	Complex   []int   `json:"complex" description:"Array of integers"`
	Unit      string  `json:"unit" enum:"c, f"`
}

type Address struct {
	City string `json:"city"`
	Zip  string `json:"zip,omitempty"`
}

type NestedParams struct {
	Address Address        `json:"address" description:"Where to deliver"`
	Map     map[string]any `json:"map" description:"Map of values"`
	When    time.Duration  `json:"when"`
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestToolParameters_Simple(t *testing.T) {
	props, required := ToolParameters(SimpleParams{})
	if len(props) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(props))
	}
	name := props["name"].(map[string]any)
	if name["type"] != "string" || name["description"] != "The name of the item" {
		t.Fatalf("unexpected name schema %v", name)
	}
	if props["age"].(map[string]any)["type"] != "integer" {
		t.Errorf("expected integer age, got %v", props["age"])
	}
	if props["is_active"].(map[string]any)["type"] != "boolean" {
		t.Errorf("expected boolean is_active, got %v", props["is_active"])
	}
	if len(required) != 3 {
		t.Fatalf("all value fields should be required, got %v", required)
	}
}

func TestToolParameters_Optional(t *testing.T) {
	props, required := ToolParameters(&OptionalParams{})
	if _, ok := props["Hidden"]; ok {
		t.Error("json:\"-\" fields must be skipped")
	}
	if _, ok := props["NoJSONTag"]; !ok {
		t.Error("untagged fields keep their Go name")
	}
	if props["optional"].(map[string]any)["nullable"] != true {
		t.Errorf("pointer fields should be nullable, got %v", props["optional"])
	}
	complexSchema := props["complex"].(map[string]any)
	if complexSchema["type"] != "array" || complexSchema["items"].(map[string]any)["type"] != "integer" {
		t.Errorf("unexpected complex schema %v", complexSchema)
	}
	enum := props["unit"].(map[string]any)["enum"].([]any)
	if len(enum) != 2 || enum[1] != "f" {
		t.Errorf("unexpected enum %v", enum)
	}
	for _, want := range []string{"required", "NoJSONTag", "complex", "unit"} {
		if !contains(required, want) {
			t.Errorf("%s should be required, got %v", want, required)
		}
	}
	for _, not := range []string{"optional", "omitted", "forced"} {
		if contains(required, not) {
			t.Errorf("%s should not be required", not)
		}
	}
}

func TestToolParameters_Nested(t *testing.T) {
	props, _ := ToolParameters(NestedParams{})
	addr := props["address"].(map[string]any)
	if addr["type"] != "object" {
		t.Fatalf("expected object address, got %v", addr)
	}
	if addr["description"] != "Where to deliver" {
		t.Errorf("description lost: %v", addr)
	}
	inner, ok := addr["properties"].(map[string]any)
	if !ok {
		t.Fatalf("nested properties missing: %v", addr)
	}
	if _, ok := inner["city"]; !ok {
		t.Errorf("nested city missing: %v", inner)
	}
	if _, ok := addr["$schema"]; ok {
		t.Error("$schema should be stripped")
	}
	if props["map"].(map[string]any)["type"] != "object" {
		t.Errorf("map should be an object, got %v", props["map"])
	}
	if props["when"].(map[string]any)["type"] != "integer" {
		t.Errorf("durations are integers, got %v", props["when"])
	}
}

func TestToolParameters_NonStruct(t *testing.T) {
	props, required := ToolParameters("nope")
	if len(props) != 0 || required != nil {
		t.Fatalf("non-struct input should yield nothing, got %v %v", props, required)
	}
	props, _ = ToolParameters(nil)
	if len(props) != 0 {
		t.Fatal("nil input should yield nothing")
	}
}

type enumParams struct {
	Level   int      `json:"level" enum:"1,2,3"`
	Ratio   *float64 `json:"ratio" enum:"0.5, 1.5"`
	Verbose bool     `json:"verbose" enum:"true"`
	Mode    string   `json:"mode" enum:"fast,slow"`
	Odd     int      `json:"odd" enum:"one,2"`
}

func TestToolParameters_TypedEnums(t *testing.T) {
	props, _ := ToolParameters(&enumParams{})
	enumOf := func(name string) []any { return props[name].(map[string]any)["enum"].([]any) }

	cases := []struct {
		field string
		want  []any
	}{
		{"level", []any{int64(1), int64(2), int64(3)}},
		{"ratio", []any{0.5, 1.5}},
		{"verbose", []any{true}},
		{"mode", []any{"fast", "slow"}},
		{"odd", []any{"one", int64(2)}},
	}
	for _, c := range cases {
		got := enumOf(c.field)
		if len(got) != len(c.want) {
			t.Fatalf("%s: want %v got %v", c.field, c.want, got)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("%s[%d]: want %#v got %#v", c.field, i, c.want[i], got[i])
			}
		}
	}
}
